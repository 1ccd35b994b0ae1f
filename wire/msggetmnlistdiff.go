package wire

import (
	"io"

	"github.com/dashevo/dashspv/util/chainhash"
)

// MsgGetMNListDiff implements the Message interface and represents a dash
// getmnlistd message. It is used to request the masternode list diff between
// two blocks.
type MsgGetMNListDiff struct {
	BaseBlockHash *chainhash.Hash
	BlockHash     *chainhash.Hash
}

// DashDecode decodes r using the dash protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgGetMNListDiff) DashDecode(r io.Reader, pver uint32) error {
	msg.BaseBlockHash = &chainhash.Hash{}
	err := ReadElement(r, msg.BaseBlockHash)
	if err != nil {
		return err
	}

	msg.BlockHash = &chainhash.Hash{}
	return ReadElement(r, msg.BlockHash)
}

// DashEncode encodes the receiver to w using the dash protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgGetMNListDiff) DashEncode(w io.Writer, pver uint32) error {
	return writeElements(w, msg.BaseBlockHash, msg.BlockHash)
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgGetMNListDiff) Command() string {
	return CmdGetMNListDiff
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgGetMNListDiff) MaxPayloadLength(pver uint32) uint32 {
	return chainhash.HashSize * 2
}

// NewMsgGetMNListDiff returns a new getmnlistd message that conforms to the
// Message interface. A zero base hash requests the full list at blockHash.
func NewMsgGetMNListDiff(baseBlockHash, blockHash *chainhash.Hash) *MsgGetMNListDiff {
	return &MsgGetMNListDiff{
		BaseBlockHash: baseBlockHash,
		BlockHash:     blockHash,
	}
}
