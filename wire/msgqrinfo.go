package wire

import (
	"io"
)

const (
	// maxQRInfoListEntries bounds the extra snapshot and diff lists of a
	// qrinfo message.
	maxQRInfoListEntries = 64

	// maxQRInfoCommitmentsPerIndex bounds the last commitment per index list.
	maxQRInfoCommitmentsPerIndex = 64
)

// MsgQRInfo implements the Message interface and represents a dash qrinfo
// message. It carries the masternode list diffs and quorum snapshots needed
// to rebuild rotated quorums at the requested block: the tip, the work block
// H, and the three (or four with ExtraShare) previous rotation cycles.
type MsgQRInfo struct {
	SnapshotAtHMinusC  *LLMQSnapshot
	SnapshotAtHMinus2C *LLMQSnapshot
	SnapshotAtHMinus3C *LLMQSnapshot

	MNListDiffTip        *MsgMNListDiff
	MNListDiffAtH        *MsgMNListDiff
	MNListDiffAtHMinusC  *MsgMNListDiff
	MNListDiffAtHMinus2C *MsgMNListDiff
	MNListDiffAtHMinus3C *MsgMNListDiff

	ExtraShare           bool
	SnapshotAtHMinus4C   *LLMQSnapshot
	MNListDiffAtHMinus4C *MsgMNListDiff

	LastCommitmentPerIndex []*QuorumCommitment
	SnapshotList           []*LLMQSnapshot
	MNListDiffList         []*MsgMNListDiff
}

// DashDecode decodes r using the dash protocol encoding into the receiver.
// This is part of the Message interface implementation.
func (msg *MsgQRInfo) DashDecode(r io.Reader, pver uint32) error {
	var err error
	for _, snapshot := range []**LLMQSnapshot{&msg.SnapshotAtHMinusC, &msg.SnapshotAtHMinus2C, &msg.SnapshotAtHMinus3C} {
		*snapshot, err = readSnapshot(r)
		if err != nil {
			return err
		}
	}

	for _, diff := range []**MsgMNListDiff{&msg.MNListDiffTip, &msg.MNListDiffAtH, &msg.MNListDiffAtHMinusC,
		&msg.MNListDiffAtHMinus2C, &msg.MNListDiffAtHMinus3C} {
		*diff, err = readDiff(r, pver)
		if err != nil {
			return err
		}
	}

	err = ReadElement(r, &msg.ExtraShare)
	if err != nil {
		return err
	}
	msg.SnapshotAtHMinus4C = nil
	msg.MNListDiffAtHMinus4C = nil
	if msg.ExtraShare {
		msg.SnapshotAtHMinus4C, err = readSnapshot(r)
		if err != nil {
			return err
		}
		msg.MNListDiffAtHMinus4C, err = readDiff(r, pver)
		if err != nil {
			return err
		}
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxQRInfoCommitmentsPerIndex {
		return messageError("MsgQRInfo.DashDecode", "too many last commitments per index")
	}
	msg.LastCommitmentPerIndex = make([]*QuorumCommitment, count)
	for i := range msg.LastCommitmentPerIndex {
		commitment := &QuorumCommitment{}
		err = commitment.Deserialize(r)
		if err != nil {
			return err
		}
		msg.LastCommitmentPerIndex[i] = commitment
	}

	count, err = ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxQRInfoListEntries {
		return messageError("MsgQRInfo.DashDecode", "too many quorum snapshots")
	}
	msg.SnapshotList = make([]*LLMQSnapshot, count)
	for i := range msg.SnapshotList {
		msg.SnapshotList[i], err = readSnapshot(r)
		if err != nil {
			return err
		}
	}

	count, err = ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > maxQRInfoListEntries {
		return messageError("MsgQRInfo.DashDecode", "too many masternode list diffs")
	}
	msg.MNListDiffList = make([]*MsgMNListDiff, count)
	for i := range msg.MNListDiffList {
		msg.MNListDiffList[i], err = readDiff(r, pver)
		if err != nil {
			return err
		}
	}
	return nil
}

func readSnapshot(r io.Reader) (*LLMQSnapshot, error) {
	snapshot := &LLMQSnapshot{}
	err := snapshot.Deserialize(r)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func readDiff(r io.Reader, pver uint32) (*MsgMNListDiff, error) {
	diff := &MsgMNListDiff{}
	err := diff.DashDecode(r, pver)
	if err != nil {
		return nil, err
	}
	return diff, nil
}

// DashEncode encodes the receiver to w using the dash protocol encoding.
// This is part of the Message interface implementation.
func (msg *MsgQRInfo) DashEncode(w io.Writer, pver uint32) error {
	for _, snapshot := range []*LLMQSnapshot{msg.SnapshotAtHMinusC, msg.SnapshotAtHMinus2C, msg.SnapshotAtHMinus3C} {
		err := snapshot.Serialize(w)
		if err != nil {
			return err
		}
	}
	for _, diff := range []*MsgMNListDiff{msg.MNListDiffTip, msg.MNListDiffAtH, msg.MNListDiffAtHMinusC,
		msg.MNListDiffAtHMinus2C, msg.MNListDiffAtHMinus3C} {
		err := diff.DashEncode(w, pver)
		if err != nil {
			return err
		}
	}

	err := WriteElement(w, msg.ExtraShare)
	if err != nil {
		return err
	}
	if msg.ExtraShare {
		err = msg.SnapshotAtHMinus4C.Serialize(w)
		if err != nil {
			return err
		}
		err = msg.MNListDiffAtHMinus4C.DashEncode(w, pver)
		if err != nil {
			return err
		}
	}

	err = WriteVarInt(w, uint64(len(msg.LastCommitmentPerIndex)))
	if err != nil {
		return err
	}
	for _, commitment := range msg.LastCommitmentPerIndex {
		err = commitment.Serialize(w)
		if err != nil {
			return err
		}
	}

	err = WriteVarInt(w, uint64(len(msg.SnapshotList)))
	if err != nil {
		return err
	}
	for _, snapshot := range msg.SnapshotList {
		err = snapshot.Serialize(w)
		if err != nil {
			return err
		}
	}

	err = WriteVarInt(w, uint64(len(msg.MNListDiffList)))
	if err != nil {
		return err
	}
	for _, diff := range msg.MNListDiffList {
		err = diff.DashEncode(w, pver)
		if err != nil {
			return err
		}
	}
	return nil
}

// Command returns the protocol command string for the message. This is part
// of the Message interface implementation.
func (msg *MsgQRInfo) Command() string {
	return CmdQRInfo
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgQRInfo) MaxPayloadLength(pver uint32) uint32 {
	return MaxMessagePayload
}
