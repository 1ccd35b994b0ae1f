package quorumvalidator

import (
	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/domain/masternode/utils/scoring"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

// RotatedMembers rebuilds the members of every quorum index of a rotation
// cycle. The members of index i are the i-th quarters picked by the cycles
// at H-3C, H-2C and H-C, followed by the i-th quarter the cycle at H adds.
func (qv *quorumValidator) RotatedMembers(llmqParams *chaincfg.LLMQParams,
	cycle *model.RotationCycle) ([][]*model.MasternodeEntry, error) {

	if !llmqParams.UseRotation {
		return nil, errors.Errorf("quorums of type %s aren't rotated", llmqParams.Type)
	}
	if cycle.WorkList == nil {
		return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff, "the rotation cycle lacks the list "+
			"at its work block")
	}

	previous := make([][][]*model.MasternodeEntry, 0, 3)
	for _, quarter := range []*model.RotationQuarter{&cycle.HMinus3C, &cycle.HMinus2C, &cycle.HMinusC} {
		quarters, err := quarterMembersBySnapshot(llmqParams, quarter)
		if err != nil {
			return nil, err
		}
		previous = append(previous, quarters)
	}
	newQuarters := newQuarterMembers(llmqParams, cycle.WorkList, previous)

	members := make([][]*model.MasternodeEntry, llmqParams.SigningActiveQuorumCount)
	for i := range members {
		for _, quarters := range previous {
			members[i] = append(members[i], quarters[i]...)
		}
		members[i] = append(members[i], newQuarters[i]...)
	}
	return members, nil
}

// quarterMembersBySnapshot rebuilds the quarters a past cycle picked for
// every quorum index, out of the list at its work block and its snapshot.
func quarterMembersBySnapshot(llmqParams *chaincfg.LLMQParams,
	quarter *model.RotationQuarter) ([][]*model.MasternodeEntry, error) {

	if quarter.WorkList == nil || quarter.Snapshot == nil {
		return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff, "a past rotation cycle lacks its list "+
			"or its snapshot")
	}
	quarterSize := llmqParams.Size / 4
	quarters := make([][]*model.MasternodeEntry, llmqParams.SigningActiveQuorumCount)

	workList := quarter.WorkList
	ranked := rankEntries(workList.ValidEntries(), workList.Height(), cycleModifier(llmqParams, workList))
	active := quarter.Snapshot.ActiveQuorumMembers
	if len(active) < len(ranked) {
		return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff, "the snapshot of the cycle working at %s "+
			"covers %d masternodes, want at least %d", workList.BlockHash(), len(active), len(ranked))
	}

	// Masternodes the cycle didn't use come first.
	combined := make([]*model.MasternodeEntry, 0, len(ranked))
	used := make([]*model.MasternodeEntry, 0, len(ranked))
	for i, entry := range ranked {
		if active[i] {
			used = append(used, entry)
			continue
		}
		combined = append(combined, entry)
	}
	combined = append(combined, used...)
	if len(combined) == 0 {
		return quarters, nil
	}

	switch quarter.Snapshot.SkipListMode {
	case wire.LLMQSkipModeNoSkipping:
		index := 0
		for i := range quarters {
			for len(quarters[i]) < quarterSize {
				quarters[i] = append(quarters[i], combined[index])
				index = (index + 1) % len(combined)
			}
		}
	case wire.LLMQSkipModeSkipFirst:
		skipped := skippedIndexes(quarter.Snapshot.SkipList)
		index := 0
		for i := range quarters {
			for len(quarters[i]) < quarterSize {
				if len(skipped) > 0 && index == skipped[0] {
					skipped = skipped[1:]
				} else {
					quarters[i] = append(quarters[i], combined[index])
				}
				index = (index + 1) % len(combined)
			}
		}
	default:
		// Nodes don't build snapshots of the other modes. Such a cycle adds
		// no members.
		log.Debugf("The cycle working at %s has a snapshot of mode %d and adds no members",
			workList.BlockHash(), quarter.Snapshot.SkipListMode)
	}
	return quarters, nil
}

// skippedIndexes turns a skip list into the indexes it skips. The first
// entry is an index and the following ones are offsets from it.
func skippedIndexes(skipList []int32) []int {
	indexes := make([]int, 0, len(skipList))
	first := 0
	for _, skip := range skipList {
		if first == 0 {
			first = int(skip)
			indexes = append(indexes, first)
			continue
		}
		indexes = append(indexes, first+int(skip))
	}
	return indexes
}

// newQuarterMembers picks the quarters the cycle working at workList adds.
// Every quorum index takes the highest ranked masternodes it didn't use in
// previous, trying the masternodes no index used first. An index that can't
// be filled leaves every new quarter empty.
func newQuarterMembers(llmqParams *chaincfg.LLMQParams, workList *model.MasternodeList,
	previous [][][]*model.MasternodeEntry) [][]*model.MasternodeEntry {

	quorumCount := llmqParams.SigningActiveQuorumCount
	quarterSize := llmqParams.Size / 4
	quarters := make([][]*model.MasternodeEntry, quorumCount)

	validEntries := workList.ValidEntries()
	if len(validEntries) < quarterSize {
		return quarters
	}

	usedByAny := make(map[chainhash.Hash]struct{})
	usedByIndex := make([]map[chainhash.Hash]struct{}, quorumCount)
	for i := range usedByIndex {
		usedByIndex[i] = make(map[chainhash.Hash]struct{})
		for _, cycleQuarters := range previous {
			for _, member := range cycleQuarters[i] {
				entry, ok := workList.Entry(&member.ProRegTxHash)
				if !ok || !entry.IsValidAtHeight(workList.Height()) {
					continue
				}
				usedByAny[member.ProRegTxHash] = struct{}{}
				usedByIndex[i][member.ProRegTxHash] = struct{}{}
			}
		}
	}

	unused := make([]*model.MasternodeEntry, 0, len(validEntries))
	used := make([]*model.MasternodeEntry, 0, len(usedByAny))
	for _, entry := range validEntries {
		if _, ok := usedByAny[entry.ProRegTxHash]; ok {
			used = append(used, entry)
			continue
		}
		unused = append(unused, entry)
	}
	modifier := cycleModifier(llmqParams, workList)
	combined := rankEntries(unused, workList.Height(), modifier)
	combined = append(combined, rankEntries(used, workList.Height(), modifier)...)

	index := 0
	for i := range quarters {
		usedCount := len(usedByIndex[i])
		updated := false
		start := index
		for len(quarters[i]) < quarterSize && usedCount+len(quarters[i]) < len(combined) {
			candidate := combined[index]
			if _, ok := usedByIndex[i][candidate.ProRegTxHash]; !ok {
				usedByIndex[i][candidate.ProRegTxHash] = struct{}{}
				quarters[i] = append(quarters[i], candidate)
				updated = true
			}
			index = (index + 1) % len(combined)
			if index == start {
				if !updated {
					log.Debugf("Quorum index %d of the cycle working at %s can't be filled", i, workList.BlockHash())
					return make([][]*model.MasternodeEntry, quorumCount)
				}
				updated = false
			}
		}
	}
	return quarters
}

// cycleModifier seeds the scores of the cycle working at workList.
func cycleModifier(llmqParams *chaincfg.LLMQParams, workList *model.MasternodeList) *chainhash.Hash {
	return scoring.Modifier(llmqParams.Type, workList.BlockHash())
}
