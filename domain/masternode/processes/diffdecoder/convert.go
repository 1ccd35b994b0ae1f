package diffdecoder

import (
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

// FromWire converts a decoded mnlistdiff message into a DiffMessage,
// checking the constraints the wire format alone doesn't enforce.
func FromWire(msg *wire.MsgMNListDiff, protocolVersion uint32) (*model.DiffMessage, error) {
	if !msg.CbTx.IsCoinBase() || msg.CbTx.Type != wire.TxTypeCoinbase {
		return nil, errors.Wrapf(ruleerrors.ErrMalformedMessage,
			"the transaction of the diff to %s is not a coinbase special transaction", msg.BlockHash)
	}
	payload, err := msg.CbTx.CoinbasePayload()
	if err != nil {
		return nil, errors.Wrapf(ruleerrors.ErrMalformedMessage,
			"invalid coinbase payload in the diff to %s: %s", msg.BlockHash, err)
	}

	diff := &model.DiffMessage{
		ProtocolVersion:    protocolVersion,
		Version:            msg.Version,
		BaseBlockHash:      *msg.BaseBlockHash,
		BlockHash:          *msg.BlockHash,
		TotalTransactions:  msg.CbTxMerkleTree.TotalTransactions,
		MerkleHashes:       msg.CbTxMerkleTree.Hashes,
		MerkleFlags:        msg.CbTxMerkleTree.Flags,
		CoinbaseTx:         msg.CbTx,
		CoinbasePayload:    payload,
		DeletedMasternodes: msg.DeletedMNs,
		AddedOrModified:    msg.MNList,
		QuorumsCLSigs:      msg.QuorumsCLSigs,
	}

	for _, deleted := range msg.DeletedQuorums {
		diff.DeletedQuorums = append(diff.DeletedQuorums, model.QuorumKey{
			LLMQType:   deleted.LLMQType,
			QuorumHash: deleted.QuorumHash,
		})
	}
	for _, commitment := range msg.NewQuorums {
		diff.NewQuorums = append(diff.NewQuorums, model.NewQuorumEntry(commitment))
	}

	for _, clSig := range msg.QuorumsCLSigs {
		for _, index := range clSig.QuorumIndexes {
			if int(index) >= len(diff.NewQuorums) {
				return nil, errors.Wrapf(ruleerrors.ErrMalformedMessage,
					"ChainLock signature refers to quorum %d of the diff to %s, which only has %d new quorums",
					index, msg.BlockHash, len(diff.NewQuorums))
			}
		}
	}
	return diff, nil
}

// ToWire converts a DiffMessage back into its wire form.
func ToWire(diff *model.DiffMessage) *wire.MsgMNListDiff {
	baseBlockHash := diff.BaseBlockHash
	blockHash := diff.BlockHash
	msg := &wire.MsgMNListDiff{
		Version:       diff.Version,
		BaseBlockHash: &baseBlockHash,
		BlockHash:     &blockHash,
		CbTxMerkleTree: &wire.PartialMerkleTree{
			TotalTransactions: diff.TotalTransactions,
			Hashes:            diff.MerkleHashes,
			Flags:             diff.MerkleFlags,
		},
		CbTx:          diff.CoinbaseTx,
		DeletedMNs:    diff.DeletedMasternodes,
		MNList:        diff.AddedOrModified,
		QuorumsCLSigs: diff.QuorumsCLSigs,
	}
	for _, key := range diff.DeletedQuorums {
		msg.DeletedQuorums = append(msg.DeletedQuorums, &wire.DeletedQuorum{
			LLMQType:   key.LLMQType,
			QuorumHash: key.QuorumHash,
		})
	}
	for _, quorum := range diff.NewQuorums {
		msg.NewQuorums = append(msg.NewQuorums, quorum.ToCommitment())
	}
	return msg
}

// Encode serializes a DiffMessage as an mnlistdiff payload.
func Encode(diff *model.DiffMessage, protocolVersion uint32) ([]byte, error) {
	return wire.WriteMessage(ToWire(diff), protocolVersion)
}

// EncodeGetMNListDiff serializes a getmnlistd request.
func EncodeGetMNListDiff(baseBlockHash, blockHash *chainhash.Hash, protocolVersion uint32) ([]byte, error) {
	return wire.WriteMessage(wire.NewMsgGetMNListDiff(baseBlockHash, blockHash), protocolVersion)
}

// EncodeGetQRInfo serializes a getqrinfo request.
func EncodeGetQRInfo(baseBlockHashes []*chainhash.Hash, blockRequestHash *chainhash.Hash,
	extraShare bool, protocolVersion uint32) ([]byte, error) {

	return wire.WriteMessage(wire.NewMsgGetQRInfo(baseBlockHashes, blockRequestHash, extraShare), protocolVersion)
}
