package wire

import (
	"io"

	"github.com/dashevo/dashspv/util/chainhash"
)

// MaxQRInfoBaseBlockHashes is the maximum number of known base blocks a
// getqrinfo message may list.
const MaxQRInfoBaseBlockHashes = 4

// MsgGetQRInfo implements the Message interface and represents a dash
// getqrinfo message. It is used to request the rotated quorum information
// at a block, relative to the lists the requester already knows.
type MsgGetQRInfo struct {
	BaseBlockHashes  []*chainhash.Hash
	BlockRequestHash *chainhash.Hash
	ExtraShare       bool
}

// DashDecode decodes r using the dash protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgGetQRInfo) DashDecode(r io.Reader, pver uint32) error {
	hashes, err := readHashes(r, "qrinfo base block hashes")
	if err != nil {
		return err
	}
	if len(hashes) > MaxQRInfoBaseBlockHashes {
		return messageError("MsgGetQRInfo.DashDecode", "too many base block hashes")
	}
	msg.BaseBlockHashes = hashes

	msg.BlockRequestHash = &chainhash.Hash{}
	return readElements(r, msg.BlockRequestHash, &msg.ExtraShare)
}

// DashEncode encodes the receiver to w using the dash protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgGetQRInfo) DashEncode(w io.Writer, pver uint32) error {
	err := writeHashes(w, msg.BaseBlockHashes)
	if err != nil {
		return err
	}
	return writeElements(w, msg.BlockRequestHash, msg.ExtraShare)
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgGetQRInfo) Command() string {
	return CmdGetQRInfo
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgGetQRInfo) MaxPayloadLength(pver uint32) uint32 {
	return 1 + (MaxQRInfoBaseBlockHashes+1)*chainhash.HashSize + 1
}

// NewMsgGetQRInfo returns a new getqrinfo message that conforms to the
// Message interface.
func NewMsgGetQRInfo(baseBlockHashes []*chainhash.Hash, blockRequestHash *chainhash.Hash, extraShare bool) *MsgGetQRInfo {
	return &MsgGetQRInfo{
		BaseBlockHashes:  baseBlockHashes,
		BlockRequestHash: blockRequestHash,
		ExtraShare:       extraShare,
	}
}
