package listmerger

import (
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/pkg/errors"
)

type listMerger struct {
	blockHeightLookup model.BlockHeightLookup
}

// New instantiates a new ListMerger
func New(blockHeightLookup model.BlockHeightLookup) model.ListMerger {
	return &listMerger{
		blockHeightLookup: blockHeightLookup,
	}
}

// Merge applies diff to base and returns the resulting list. A nil base
// stands for the empty list preceding any registration. The base list is
// left untouched.
func (lm *listMerger) Merge(base *model.MasternodeList, diff *model.DiffMessage) (*model.MasternodeList, error) {
	if base == nil {
		base = model.EmptyMasternodeList()
	} else if !base.BlockHash().IsEqual(&diff.BaseBlockHash) {
		return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff, "diff from %s can't apply to the list at %s",
			diff.BaseBlockHash, base.BlockHash())
	}

	height, ok := lm.blockHeightLookup.BlockHeight(&diff.BlockHash)
	if !ok {
		return nil, errors.Wrapf(ruleerrors.ErrUnknownBlockHeight, "unknown height for block %s", diff.BlockHash)
	}
	if height < base.Height() {
		return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff, "diff to %s at height %d can't apply to "+
			"the list at %s of height %d", diff.BlockHash, height, base.BlockHash(), base.Height())
	}
	if diff.CoinbasePayload != nil && diff.CoinbasePayload.Height != height {
		return nil, errors.Wrapf(ruleerrors.ErrInvalidCoinbaseProof, "coinbase of the diff to %s claims "+
			"height %d, but the block is at height %d", diff.BlockHash, diff.CoinbasePayload.Height, height)
	}

	entries, err := lm.mergeEntries(base, diff, height)
	if err != nil {
		return nil, err
	}
	quorums, err := lm.mergeQuorums(base, diff)
	if err != nil {
		return nil, err
	}

	merged, err := model.NewMasternodeList(&diff.BlockHash, height, entries, quorums)
	if err != nil {
		return nil, err
	}
	log.Debugf("Merged the diff from %s to %s: %d masternodes and %d quorums at height %d",
		diff.BaseBlockHash, diff.BlockHash, merged.Len(), merged.QuorumsCount(), height)
	return merged, nil
}

func (lm *listMerger) mergeEntries(base *model.MasternodeList, diff *model.DiffMessage,
	height uint32) ([]*model.MasternodeEntry, error) {

	entries := make(map[chainhash.Hash]*model.MasternodeEntry, base.Len()+len(diff.AddedOrModified))
	for _, entry := range base.Entries() {
		entries[entry.ProRegTxHash] = entry
	}

	for _, deleted := range diff.DeletedMasternodes {
		if _, ok := entries[*deleted]; !ok {
			return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff, "diff to %s deletes masternode %s, "+
				"which is not in the list at %s", diff.BlockHash, deleted, base.BlockHash())
		}
		delete(entries, *deleted)
	}

	previous := model.BlockKey{Hash: *base.BlockHash(), Height: base.Height()}
	updated := make(map[chainhash.Hash]struct{}, len(diff.AddedOrModified))
	for _, sml := range diff.AddedOrModified {
		if _, ok := updated[sml.ProRegTxHash]; ok {
			return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff, "diff to %s lists masternode %s twice",
				diff.BlockHash, sml.ProRegTxHash)
		}
		updated[sml.ProRegTxHash] = struct{}{}

		existing, ok := entries[sml.ProRegTxHash]
		if !ok {
			entries[sml.ProRegTxHash] = model.NewMasternodeEntry(sml, height)
			continue
		}
		entries[sml.ProRegTxHash] = existing.WithUpdate(sml, previous, height)
	}

	merged := make([]*model.MasternodeEntry, 0, len(entries))
	for _, entry := range entries {
		merged = append(merged, entry)
	}
	return merged, nil
}

func (lm *listMerger) mergeQuorums(base *model.MasternodeList, diff *model.DiffMessage) ([]*model.QuorumEntry, error) {
	quorums := make(map[model.QuorumKey]*model.QuorumEntry, base.QuorumsCount()+len(diff.NewQuorums))
	for _, quorum := range base.Quorums() {
		quorums[quorum.Key()] = quorum
	}

	for _, key := range diff.DeletedQuorums {
		if _, ok := quorums[key]; !ok {
			return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff, "diff to %s deletes %s, "+
				"which is not in the list at %s", diff.BlockHash, key, base.BlockHash())
		}
		delete(quorums, key)
	}

	for _, quorum := range diff.NewQuorums {
		if _, ok := quorums[quorum.Key()]; ok {
			return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff, "diff to %s adds %s, "+
				"which is already in the list at %s", diff.BlockHash, quorum.Key(), base.BlockHash())
		}
		quorums[quorum.Key()] = quorum.WithStatus(model.StatusUnverified)
	}

	merged := make([]*model.QuorumEntry, 0, len(quorums))
	for _, quorum := range quorums {
		merged = append(merged, quorum)
	}
	return merged, nil
}
