package testutils

import (
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/util/bitset"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

// Hash returns a hash deterministically derived from seed.
func Hash(seed byte) *chainhash.Hash {
	hash := chainhash.DoubleHashH([]byte{seed})
	return &hash
}

// SMLEntry returns a valid, confirmed masternode list entry deterministically
// derived from seed.
func SMLEntry(seed byte) *wire.SMLEntry {
	entry := &wire.SMLEntry{
		Version:       wire.SMLEntryVersionLegacyBLS,
		ProRegTxHash:  *Hash(seed),
		ConfirmedHash: *Hash(seed + 128),
		Port:          9999,
		IsValid:       true,
	}
	entry.IP[10] = 0xff
	entry.IP[11] = 0xff
	entry.IP[12] = 10
	entry.IP[15] = seed
	copy(entry.OperatorPublicKey[:], Hash(seed + 64)[:])
	copy(entry.KeyIDVoting[:], Hash(seed + 32)[:])
	return entry
}

// Commitment returns a quorum commitment of the given type and size, signed
// by every member, deterministically derived from seed.
func Commitment(llmqType wire.LLMQType, seed byte, size int) *wire.QuorumCommitment {
	signers := bitset.New(size)
	validMembers := bitset.New(size)
	for i := 0; i < size; i++ {
		signers.Set(i, true)
		validMembers.Set(i, true)
	}
	commitment := &wire.QuorumCommitment{
		Version:      wire.QuorumCommitmentVersionLegacy,
		LLMQType:     llmqType,
		QuorumHash:   *Hash(seed),
		Signers:      signers,
		ValidMembers: validMembers,
	}
	copy(commitment.QuorumPublicKey[:], Hash(seed + 1)[:])
	commitment.QuorumVvecHash = *Hash(seed + 2)
	return commitment
}

// CoinbaseTx returns a coinbase special transaction committing to the given
// roots at height.
func CoinbaseTx(height uint32, masternodeMerkleRoot, quorumMerkleRoot *chainhash.Hash) *wire.MsgTx {
	payload := &wire.CoinbasePayload{
		Version:           wire.CbTxVersionMerkleRootQuorums,
		Height:            height,
		MerkleRootMNList:  *masternodeMerkleRoot,
		MerkleRootQuorums: *quorumMerkleRoot,
	}
	tx, err := wire.NewCoinbaseTx(payload, []byte{0x51}, []*wire.TxOut{{Value: 5000000000, PkScript: []byte{0x51}}})
	if err != nil {
		panic(errors.Wrapf(err, "couldn't build a coinbase transaction. This should never happen"))
	}
	return tx
}

// Diff returns a diff from base to block that proves its coinbase as the
// only transaction of block. Its coinbase commits to zero roots until
// WithRoots is called.
func Diff(base, block *chainhash.Hash, height uint32,
	deleted []*chainhash.Hash, addedOrModified []*wire.SMLEntry) *model.DiffMessage {

	diff := &model.DiffMessage{
		ProtocolVersion:    wire.ProtocolVersion,
		Version:            wire.MNListDiffVersion,
		BaseBlockHash:      *base,
		BlockHash:          *block,
		DeletedMasternodes: deleted,
		AddedOrModified:    addedOrModified,
	}
	return WithRoots(diff, height, &chainhash.ZeroHash, &chainhash.ZeroHash)
}

// WithRoots replaces the coinbase of diff with one committing to the given
// roots, and returns diff.
func WithRoots(diff *model.DiffMessage, height uint32,
	masternodeMerkleRoot, quorumMerkleRoot *chainhash.Hash) *model.DiffMessage {

	diff.CoinbaseTx = CoinbaseTx(height, masternodeMerkleRoot, quorumMerkleRoot)
	payload, err := diff.CoinbaseTx.CoinbasePayload()
	if err != nil {
		panic(errors.Wrapf(err, "couldn't parse a coinbase payload. This should never happen"))
	}
	diff.CoinbasePayload = payload
	diff.TotalTransactions = 1
	diff.MerkleHashes = []*chainhash.Hash{diff.CoinbaseTx.TxHash()}
	diff.MerkleFlags = []byte{0x01}
	return diff
}

// HeightLookup returns a BlockHeightLookup that knows the given heights.
func HeightLookup(heights map[chainhash.Hash]uint32) model.BlockHeightLookup {
	return model.BlockHeightLookupFunc(func(blockHash *chainhash.Hash) (uint32, bool) {
		height, ok := heights[*blockHash]
		return height, ok
	})
}
