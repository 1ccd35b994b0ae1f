package diffdecoder

import (
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

type diffDecoder struct{}

// New instantiates a new DiffDecoder
func New() model.DiffDecoder {
	return &diffDecoder{}
}

// Decode parses an mnlistdiff payload. Any violation of the wire format is
// reported as ruleerrors.ErrMalformedMessage.
func (dd *diffDecoder) Decode(payload []byte, protocolVersion uint32) (*model.DiffMessage, error) {
	msg, err := wire.ReadMessage(wire.CmdMNListDiff, payload, protocolVersion)
	if err != nil {
		return nil, errors.Wrapf(ruleerrors.ErrMalformedMessage, "invalid %s: %s", wire.CmdMNListDiff, err)
	}
	diff, err := FromWire(msg.(*wire.MsgMNListDiff), protocolVersion)
	if err != nil {
		return nil, err
	}
	log.Tracef("Decoded %s from %s to %s: %d deleted, %d added or modified masternodes, "+
		"%d deleted, %d new quorums", wire.CmdMNListDiff, diff.BaseBlockHash, diff.BlockHash,
		len(diff.DeletedMasternodes), len(diff.AddedOrModified), len(diff.DeletedQuorums), len(diff.NewQuorums))
	return diff, nil
}

// DecodeQRInfo parses a qrinfo payload. Any violation of the wire format is
// reported as ruleerrors.ErrMalformedMessage.
func (dd *diffDecoder) DecodeQRInfo(payload []byte, protocolVersion uint32) (*model.QRInfoMessage, error) {
	msg, err := wire.ReadMessage(wire.CmdQRInfo, payload, protocolVersion)
	if err != nil {
		return nil, errors.Wrapf(ruleerrors.ErrMalformedMessage, "invalid %s: %s", wire.CmdQRInfo, err)
	}
	qrInfo := msg.(*wire.MsgQRInfo)

	info := &model.QRInfoMessage{
		SnapshotAtHMinusC:  qrInfo.SnapshotAtHMinusC,
		SnapshotAtHMinus2C: qrInfo.SnapshotAtHMinus2C,
		SnapshotAtHMinus3C: qrInfo.SnapshotAtHMinus3C,
		ExtraShare:         qrInfo.ExtraShare,
		SnapshotAtHMinus4C: qrInfo.SnapshotAtHMinus4C,
		SnapshotList:       qrInfo.SnapshotList,
	}

	diffs := []struct {
		source *wire.MsgMNListDiff
		target **model.DiffMessage
	}{
		{qrInfo.MNListDiffTip, &info.DiffTip},
		{qrInfo.MNListDiffAtH, &info.DiffAtH},
		{qrInfo.MNListDiffAtHMinusC, &info.DiffAtHMinusC},
		{qrInfo.MNListDiffAtHMinus2C, &info.DiffAtHMinus2C},
		{qrInfo.MNListDiffAtHMinus3C, &info.DiffAtHMinus3C},
		{qrInfo.MNListDiffAtHMinus4C, &info.DiffAtHMinus4C},
	}
	for _, diff := range diffs {
		if diff.source == nil {
			continue
		}
		*diff.target, err = FromWire(diff.source, protocolVersion)
		if err != nil {
			return nil, err
		}
	}

	for _, commitment := range qrInfo.LastCommitmentPerIndex {
		info.LastCommitmentPerIndex = append(info.LastCommitmentPerIndex, model.NewQuorumEntry(commitment))
	}
	for _, listDiff := range qrInfo.MNListDiffList {
		diff, err := FromWire(listDiff, protocolVersion)
		if err != nil {
			return nil, err
		}
		info.DiffList = append(info.DiffList, diff)
	}
	if len(info.SnapshotList) != len(info.DiffList) {
		return nil, errors.Wrapf(ruleerrors.ErrMalformedMessage,
			"%s carries %d extra snapshots but %d extra diffs", wire.CmdQRInfo,
			len(info.SnapshotList), len(info.DiffList))
	}
	return info, nil
}
