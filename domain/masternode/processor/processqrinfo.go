package processor

import (
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/infrastructure/metrics"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

type blockSnapshot struct {
	diff     *model.DiffMessage
	snapshot *wire.LLMQSnapshot
}

func (p *Processor) processQRInfoPayload(payload []byte, protocolVersion uint32,
	peerID string) (*model.QRInfoResult, error) {

	info, err := p.diffDecoder.DecodeQRInfo(payload, protocolVersion)
	if err != nil {
		return nil, err
	}
	return p.processQRInfo(info, peerID)
}

// processQRInfo applies the diffs of info oldest first, so that every diff
// finds the list produced by the previous one. Processing stops at the first
// diff that fails. The last commitments of info are then verified against
// the members rebuilt from its rotation cycles.
func (p *Processor) processQRInfo(info *model.QRInfoMessage, peerID string) (*model.QRInfoResult, error) {
	result := &model.QRInfoResult{
		Snapshots: make(map[chainhash.Hash]*wire.LLMQSnapshot),
	}

	for _, diff := range info.Diffs() {
		if diff == nil {
			continue
		}
		diffResult, err := p.processDiff(diff, peerID)
		if diffResult != nil {
			result.Results = append(result.Results, diffResult)
		}
		if err != nil {
			return result, err
		}

		switch diff {
		case info.DiffTip:
			result.Tip = diffResult
		case info.DiffAtH:
			result.AtH = diffResult
		case info.DiffAtHMinusC:
			result.AtHMinusC = diffResult
		case info.DiffAtHMinus2C:
			result.AtHMinus2C = diffResult
		case info.DiffAtHMinus3C:
			result.AtHMinus3C = diffResult
		case info.DiffAtHMinus4C:
			result.AtHMinus4C = diffResult
		}
	}

	snapshots := []blockSnapshot{
		{info.DiffAtHMinusC, info.SnapshotAtHMinusC},
		{info.DiffAtHMinus2C, info.SnapshotAtHMinus2C},
		{info.DiffAtHMinus3C, info.SnapshotAtHMinus3C},
	}
	if info.ExtraShare {
		snapshots = append(snapshots, blockSnapshot{info.DiffAtHMinus4C, info.SnapshotAtHMinus4C})
	}
	for i, snapshot := range info.SnapshotList {
		snapshots = append(snapshots, blockSnapshot{info.DiffList[i], snapshot})
	}
	for _, snapshot := range snapshots {
		if snapshot.diff == nil || snapshot.snapshot == nil {
			continue
		}
		result.Snapshots[snapshot.diff.BlockHash] = snapshot.snapshot
	}

	err := p.verifyRotatedQuorums(info, result)
	if err != nil {
		return result, err
	}

	log.Debugf("Processed qrinfo from peer %s: %d diffs, %d quorum snapshots, %d last commitments per index",
		peerID, len(result.Results), len(result.Snapshots), len(info.LastCommitmentPerIndex))
	return result, nil
}

// verifyRotatedQuorums verifies the last commitment of every quorum index
// and records the statuses in the lists processed from info that hold these
// commitments.
func (p *Processor) verifyRotatedQuorums(info *model.QRInfoMessage, result *model.QRInfoResult) error {
	if len(info.LastCommitmentPerIndex) == 0 {
		return nil
	}
	cycle, ok := rotationCycle(info, result)
	if !ok {
		log.Debugf("The qrinfo lacks a list or snapshot of its rotation cycles, " +
			"leaving its last commitments unverified")
		result.LastCommitmentPerIndex = info.LastCommitmentPerIndex
		return nil
	}

	membersByType := make(map[wire.LLMQType][][]*model.MasternodeEntry)
	verified := make(map[model.QuorumKey]*model.QuorumEntry, len(info.LastCommitmentPerIndex))
	for _, quorum := range info.LastCommitmentPerIndex {
		status, err := p.verifyRotatedQuorum(quorum, cycle, membersByType)
		if err != nil {
			if !errors.Is(err, ruleerrors.ErrQuorumSignatureInvalid) {
				return err
			}
			log.Warnf("%s failed validation: %s", quorum.Key(), err)
		}
		metrics.QuorumsValidated.WithLabelValues(status.String()).Inc()
		quorum = quorum.WithStatus(status)
		result.LastCommitmentPerIndex = append(result.LastCommitmentPerIndex, quorum)
		verified[quorum.Key()] = quorum
	}
	return p.recordRotatedStatuses(result, verified)
}

func (p *Processor) verifyRotatedQuorum(quorum *model.QuorumEntry, cycle *model.RotationCycle,
	membersByType map[wire.LLMQType][][]*model.MasternodeEntry) (model.VerificationStatus, error) {

	if !p.processesQuorumType(quorum.LLMQType) {
		return model.StatusSkipped, nil
	}
	llmqParams, ok := p.params.LLMQ(quorum.LLMQType)
	if !ok || !llmqParams.UseRotation || !quorum.IsRotated() {
		return model.StatusInvalid, errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid,
			"%s isn't a rotated quorum", quorum.Key())
	}

	members, ok := membersByType[quorum.LLMQType]
	if !ok {
		var err error
		members, err = p.quorumValidator.RotatedMembers(llmqParams, cycle)
		if err != nil {
			return model.StatusUnverified, err
		}
		membersByType[quorum.LLMQType] = members
	}
	index := int(quorum.QuorumIndex)
	if index < 0 || index >= len(members) {
		return model.StatusInvalid, errors.Wrapf(ruleerrors.ErrQuorumSignatureInvalid,
			"%s has quorum index %d, want less than %d", quorum.Key(), index, len(members))
	}
	return p.quorumValidator.Validate(quorum, members[index])
}

// recordRotatedStatuses accepts again the lists processed from a qrinfo that
// hold one of the verified commitments, with its status.
func (p *Processor) recordRotatedStatuses(result *model.QRInfoResult,
	verified map[model.QuorumKey]*model.QuorumEntry) error {

	for _, diffResult := range result.Results {
		list, ok := p.cache.Get(diffResult.MasternodeList.BlockHash())
		if !ok {
			continue
		}

		var updated []*model.QuorumEntry
		for key, quorum := range verified {
			existing, ok := list.Quorum(key.LLMQType, &key.QuorumHash)
			if !ok || existing.EntryHash != quorum.EntryHash || existing.Status == quorum.Status {
				continue
			}
			updated = append(updated, existing.WithStatus(quorum.Status))
		}
		if len(updated) == 0 {
			continue
		}

		list, err := list.WithQuorums(updated...)
		if err != nil {
			return err
		}
		err = p.accept(list)
		if err != nil {
			return err
		}
		diffResult.MasternodeList = list
	}
	return nil
}

// rotationCycle returns the rotation cycle the work block diffs and the
// snapshots of info describe.
func rotationCycle(info *model.QRInfoMessage, result *model.QRInfoResult) (*model.RotationCycle, bool) {
	if result.AtH == nil || result.AtHMinusC == nil || result.AtHMinus2C == nil || result.AtHMinus3C == nil {
		return nil, false
	}
	if info.SnapshotAtHMinusC == nil || info.SnapshotAtHMinus2C == nil || info.SnapshotAtHMinus3C == nil {
		return nil, false
	}
	return &model.RotationCycle{
		WorkList: result.AtH.MasternodeList,
		HMinusC:  model.RotationQuarter{WorkList: result.AtHMinusC.MasternodeList, Snapshot: info.SnapshotAtHMinusC},
		HMinus2C: model.RotationQuarter{WorkList: result.AtHMinus2C.MasternodeList, Snapshot: info.SnapshotAtHMinus2C},
		HMinus3C: model.RotationQuarter{WorkList: result.AtHMinus3C.MasternodeList, Snapshot: info.SnapshotAtHMinus3C},
	}, true
}
