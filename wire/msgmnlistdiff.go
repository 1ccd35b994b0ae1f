package wire

import (
	"io"

	"github.com/dashevo/dashspv/util/chainhash"
)

// MNListDiffVersion is the diff version written by this package when the
// protocol version carries one.
const MNListDiffVersion uint16 = 1

// DeletedQuorum identifies a quorum removed from the list by a diff.
type DeletedQuorum struct {
	LLMQType   LLMQType
	QuorumHash chainhash.Hash
}

// QuorumCLSig is a ChainLock signature shared by the quorums at the given
// indexes of the diff's new quorums.
type QuorumCLSig struct {
	Signature     BLSSignature
	QuorumIndexes []uint16
}

// MsgMNListDiff implements the Message interface and represents a dash
// mnlistdiff message. It carries the changes between the masternode and
// quorum lists at BaseBlockHash and at BlockHash, along with the coinbase
// transaction of BlockHash and its merkle proof.
type MsgMNListDiff struct {
	Version        uint16
	BaseBlockHash  *chainhash.Hash
	BlockHash      *chainhash.Hash
	CbTxMerkleTree *PartialMerkleTree
	CbTx           *MsgTx
	DeletedMNs     []*chainhash.Hash
	MNList         []*SMLEntry
	DeletedQuorums []*DeletedQuorum
	NewQuorums     []*QuorumCommitment
	QuorumsCLSigs  []*QuorumCLSig
}

// DashDecode decodes r using the dash protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgMNListDiff) DashDecode(r io.Reader, pver uint32) error {
	msg.Version = MNListDiffVersion
	if pver >= DiffVersionFirstProtocolVersion {
		err := ReadElement(r, &msg.Version)
		if err != nil {
			return err
		}
	}

	msg.BaseBlockHash = &chainhash.Hash{}
	msg.BlockHash = &chainhash.Hash{}
	err := readElements(r, msg.BaseBlockHash, msg.BlockHash)
	if err != nil {
		return err
	}

	msg.CbTxMerkleTree = &PartialMerkleTree{}
	err = msg.CbTxMerkleTree.Deserialize(r)
	if err != nil {
		return err
	}

	msg.CbTx = &MsgTx{}
	err = msg.CbTx.Deserialize(r)
	if err != nil {
		return err
	}

	if pver >= BLSSchemeProtocolVersion && pver < DiffVersionFirstProtocolVersion {
		err = ReadElement(r, &msg.Version)
		if err != nil {
			return err
		}
	}

	msg.DeletedMNs, err = readHashes(r, "deleted masternodes")
	if err != nil {
		return err
	}

	count, err := readCount(r, SMLEntryPayloadSize, "masternode list entries")
	if err != nil {
		return err
	}
	msg.MNList = make([]*SMLEntry, count)
	for i := range msg.MNList {
		entry := &SMLEntry{}
		err = entry.DashDecode(r, pver)
		if err != nil {
			return err
		}
		msg.MNList[i] = entry
	}

	count, err = readCount(r, 1+chainhash.HashSize, "deleted quorums")
	if err != nil {
		return err
	}
	msg.DeletedQuorums = make([]*DeletedQuorum, count)
	for i := range msg.DeletedQuorums {
		deleted := &DeletedQuorum{}
		err = readElements(r, &deleted.LLMQType, &deleted.QuorumHash)
		if err != nil {
			return err
		}
		msg.DeletedQuorums[i] = deleted
	}

	count, err = readCount(r, minQuorumCommitmentPayload, "new quorums")
	if err != nil {
		return err
	}
	msg.NewQuorums = make([]*QuorumCommitment, count)
	for i := range msg.NewQuorums {
		commitment := &QuorumCommitment{}
		err = commitment.Deserialize(r)
		if err != nil {
			return err
		}
		msg.NewQuorums[i] = commitment
	}

	msg.QuorumsCLSigs = nil
	if pver >= ChainLockSigsProtocolVersion {
		count, err = readCount(r, BLSSignatureSize+1, "quorum chainlock signatures")
		if err != nil {
			return err
		}
		msg.QuorumsCLSigs = make([]*QuorumCLSig, count)
		for i := range msg.QuorumsCLSigs {
			clSig := &QuorumCLSig{}
			err = ReadElement(r, &clSig.Signature)
			if err != nil {
				return err
			}
			indexCount, err := readCount(r, 2, "chainlock signature quorum indexes")
			if err != nil {
				return err
			}
			clSig.QuorumIndexes = make([]uint16, indexCount)
			for j := range clSig.QuorumIndexes {
				err = ReadElement(r, &clSig.QuorumIndexes[j])
				if err != nil {
					return err
				}
			}
			msg.QuorumsCLSigs[i] = clSig
		}
	}
	return nil
}

// DashEncode encodes the receiver to w using the dash protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgMNListDiff) DashEncode(w io.Writer, pver uint32) error {
	if pver >= DiffVersionFirstProtocolVersion {
		err := WriteElement(w, msg.Version)
		if err != nil {
			return err
		}
	}

	err := writeElements(w, msg.BaseBlockHash, msg.BlockHash)
	if err != nil {
		return err
	}
	err = msg.CbTxMerkleTree.Serialize(w)
	if err != nil {
		return err
	}
	err = msg.CbTx.Serialize(w)
	if err != nil {
		return err
	}

	if pver >= BLSSchemeProtocolVersion && pver < DiffVersionFirstProtocolVersion {
		err = WriteElement(w, msg.Version)
		if err != nil {
			return err
		}
	}

	err = writeHashes(w, msg.DeletedMNs)
	if err != nil {
		return err
	}

	err = WriteVarInt(w, uint64(len(msg.MNList)))
	if err != nil {
		return err
	}
	for _, entry := range msg.MNList {
		err = entry.DashEncode(w, pver)
		if err != nil {
			return err
		}
	}

	err = WriteVarInt(w, uint64(len(msg.DeletedQuorums)))
	if err != nil {
		return err
	}
	for _, deleted := range msg.DeletedQuorums {
		err = writeElements(w, deleted.LLMQType, &deleted.QuorumHash)
		if err != nil {
			return err
		}
	}

	err = WriteVarInt(w, uint64(len(msg.NewQuorums)))
	if err != nil {
		return err
	}
	for _, commitment := range msg.NewQuorums {
		err = commitment.Serialize(w)
		if err != nil {
			return err
		}
	}

	if pver >= ChainLockSigsProtocolVersion {
		err = WriteVarInt(w, uint64(len(msg.QuorumsCLSigs)))
		if err != nil {
			return err
		}
		for _, clSig := range msg.QuorumsCLSigs {
			err = WriteElement(w, &clSig.Signature)
			if err != nil {
				return err
			}
			err = WriteVarInt(w, uint64(len(clSig.QuorumIndexes)))
			if err != nil {
				return err
			}
			for _, index := range clSig.QuorumIndexes {
				err = WriteElement(w, index)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgMNListDiff) Command() string {
	return CmdMNListDiff
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgMNListDiff) MaxPayloadLength(pver uint32) uint32 {
	return MaxMessagePayload
}
