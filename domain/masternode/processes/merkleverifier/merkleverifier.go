package merkleverifier

import (
	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

type merkleVerifier struct {
	params *chaincfg.Params
}

// New instantiates a new MerkleVerifier
func New(params *chaincfg.Params) model.MerkleVerifier {
	return &merkleVerifier{params: params}
}

// MasternodeMerkleRoot computes the merkle root of the masternodes of list,
// in list order.
func (mv *merkleVerifier) MasternodeMerkleRoot(list *model.MasternodeList) *chainhash.Hash {
	entries := list.Entries()
	leaves := make([]*chainhash.Hash, len(entries))
	for i, entry := range entries {
		leaves[i] = mv.masternodeLeaf(entry, list.Height())
	}
	return MerkleRoot(leaves)
}

func (mv *merkleVerifier) masternodeLeaf(entry *model.MasternodeEntry, height uint32) *chainhash.Hash {
	if entry.ConfirmedHash.IsZero() || !mv.params.UsesConfirmedHashLeaf(height) {
		return entry.EntryHashAtHeight(height)
	}
	return entry.ConfirmedHashHashedWithProRegTxHashAtHeight(height)
}

// QuorumMerkleRoot computes the merkle root of the quorum commitments of
// list, ordered by llmq type then quorum hash.
func (mv *merkleVerifier) QuorumMerkleRoot(list *model.MasternodeList) *chainhash.Hash {
	quorums := list.Quorums()
	leaves := make([]*chainhash.Hash, len(quorums))
	for i, quorum := range quorums {
		entryHash := quorum.EntryHash
		leaves[i] = &entryHash
	}
	return MerkleRoot(leaves)
}

// VerifyMasternodeRoot returns whether the masternode merkle root of list
// matches the one committed to by payload.
func (mv *merkleVerifier) VerifyMasternodeRoot(list *model.MasternodeList, payload *wire.CoinbasePayload) bool {
	root := mv.MasternodeMerkleRoot(list)
	if !root.IsEqual(&payload.MerkleRootMNList) {
		log.Debugf("Masternode merkle root mismatch at %s: computed %s, coinbase has %s",
			list.BlockHash(), root, payload.MerkleRootMNList)
		return false
	}
	return true
}

// VerifyQuorumRoot returns whether the quorum merkle root of list matches
// the one committed to by payload. Coinbases that predate quorum commitments
// always pass.
func (mv *merkleVerifier) VerifyQuorumRoot(list *model.MasternodeList, payload *wire.CoinbasePayload) bool {
	if !payload.HasQuorumsRoot() || !mv.params.IsQuorumsRootRequired(list.Height()) {
		return true
	}
	root := mv.QuorumMerkleRoot(list)
	if !root.IsEqual(&payload.MerkleRootQuorums) {
		log.Debugf("Quorum merkle root mismatch at %s: computed %s, coinbase has %s",
			list.BlockHash(), root, payload.MerkleRootQuorums)
		return false
	}
	return true
}

// VerifyCoinbaseInclusion checks that the partial merkle tree of diff proves
// its coinbase transaction as the first transaction of the block, and
// returns whether it does. When headerMerkleRoot is non-nil, the tree root
// must also match it for the proof to be valid.
func (mv *merkleVerifier) VerifyCoinbaseInclusion(diff *model.DiffMessage,
	headerMerkleRoot *chainhash.Hash) (found bool, err error) {

	if diff.CoinbaseTx == nil {
		return false, errors.Wrapf(ruleerrors.ErrInvalidCoinbaseProof, "diff to %s has no coinbase", diff.BlockHash)
	}
	root, matches, err := PartialMerkleRoot(diff.TotalTransactions, diff.MerkleHashes, diff.MerkleFlags)
	if err != nil {
		return false, errors.Wrapf(ruleerrors.ErrInvalidCoinbaseProof, "diff to %s: %s", diff.BlockHash, err)
	}

	coinbaseHash := diff.CoinbaseHash()
	for _, match := range matches {
		if match.Position == 0 && match.Hash.IsEqual(coinbaseHash) {
			found = true
			break
		}
	}
	if !found {
		return false, errors.Wrapf(ruleerrors.ErrInvalidCoinbaseProof, "the merkle proof of the diff to %s "+
			"doesn't prove its coinbase %s", diff.BlockHash, coinbaseHash)
	}

	if headerMerkleRoot != nil && !root.IsEqual(headerMerkleRoot) {
		return true, errors.Wrapf(ruleerrors.ErrInvalidCoinbaseProof, "the merkle proof of the diff to %s "+
			"has root %s, but the block header commits to %s", diff.BlockHash, root, headerMerkleRoot)
	}
	return true, nil
}
