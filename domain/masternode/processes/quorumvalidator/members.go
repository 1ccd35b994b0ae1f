package quorumvalidator

import (
	"sort"

	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/utils/scoring"
	"github.com/dashevo/dashspv/util/chainhash"
)

// MembersForQuorum returns the members of the quorum of the given type
// created at quorumHash, in member order. list must be the masternode list
// at quorumHash.
//
// Valid and confirmed masternodes are scored by the double sha256 of their
// confirmed hash hashed with their registration hash followed by the quorum
// modifier. The highest scores make the quorum.
func (qv *quorumValidator) MembersForQuorum(list *model.MasternodeList, llmqParams *chaincfg.LLMQParams,
	quorumHash *chainhash.Hash) []*model.MasternodeEntry {

	modifier := scoring.Modifier(llmqParams.Type, quorumHash)
	ranked := rankEntries(list.ValidEntries(), list.Height(), modifier)
	if len(ranked) > llmqParams.Size {
		ranked = ranked[:llmqParams.Size]
	}
	return ranked
}

// rankEntries returns the confirmed entries among entries, by descending
// score for modifier. entries must be valid at height.
func rankEntries(entries []*model.MasternodeEntry, height uint32,
	modifier *chainhash.Hash) []*model.MasternodeEntry {

	scored := make([]*scoring.Scored, 0, len(entries))
	for i, entry := range entries {
		if entry.ConfirmedHashAtHeight(height).IsZero() {
			continue
		}
		score := chainhash.DoubleHashConcat(entry.ConfirmedHashHashedWithProRegTxHashAtHeight(height), modifier)
		scored = append(scored, &scoring.Scored{
			Score:      scoring.Score(&score),
			Identifier: entry.ProRegTxHash,
			Index:      i,
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		return scored[j].Less(scored[i])
	})

	ranked := make([]*model.MasternodeEntry, len(scored))
	for i, s := range scored {
		ranked[i] = entries[s.Index]
	}
	return ranked
}
