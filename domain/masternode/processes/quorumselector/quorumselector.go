package quorumselector

import (
	"sort"

	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/utils/scoring"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
)

type quorumSelector struct {
	params *chaincfg.Params
}

// New instantiates a new QuorumSelector
func New(params *chaincfg.Params) model.QuorumSelector {
	return &quorumSelector{params: params}
}

// rank returns the indexes of identifiers ordered by ascending score, where
// each score is the double sha256 of the request modifier followed by the
// identifier.
func rank(modifier *chainhash.Hash, identifiers []chainhash.Hash) []int {
	scored := make([]*scoring.Scored, len(identifiers))
	for i := range identifiers {
		score := chainhash.DoubleHashConcat(modifier, &identifiers[i])
		scored[i] = &scoring.Scored{
			Score:      scoring.Score(&score),
			Identifier: identifiers[i],
			Index:      i,
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Less(scored[j])
	})

	indexes := make([]int, len(scored))
	for i, item := range scored {
		indexes[i] = item.Index
	}
	return indexes
}

func limit(count, available int) int {
	if count <= 0 || count > available {
		return available
	}
	return count
}

// RankedQuorums returns up to count verified quorums of the given type in
// list, best candidate for requestID first. A non-positive count returns
// every candidate.
func (qs *quorumSelector) RankedQuorums(list *model.MasternodeList, requestID *chainhash.Hash,
	llmqType wire.LLMQType, count int) []*model.QuorumEntry {

	var candidates []*model.QuorumEntry
	for _, quorum := range list.QuorumsOfType(llmqType) {
		if quorum.IsVerified() {
			candidates = append(candidates, quorum)
		}
	}

	identifiers := make([]chainhash.Hash, len(candidates))
	for i, quorum := range candidates {
		identifiers[i] = quorum.QuorumHash
	}
	indexes := rank(scoring.Modifier(llmqType, requestID), identifiers)

	ranked := make([]*model.QuorumEntry, limit(count, len(indexes)))
	for i := range ranked {
		ranked[i] = candidates[indexes[i]]
	}
	return ranked
}

// RankedMembers returns up to count members of quorum, best candidate for
// requestID first. Members of quorums that aren't verified are never ranked.
// A non-positive count returns every member.
func (qs *quorumSelector) RankedMembers(quorum *model.QuorumEntry, members []*model.MasternodeEntry,
	requestID *chainhash.Hash, count int) []*model.MasternodeEntry {

	if !quorum.IsVerified() {
		return nil
	}

	identifiers := make([]chainhash.Hash, len(members))
	for i, member := range members {
		identifiers[i] = member.ProRegTxHash
	}
	indexes := rank(scoring.Modifier(quorum.LLMQType, requestID), identifiers)

	ranked := make([]*model.MasternodeEntry, limit(count, len(indexes)))
	for i := range ranked {
		ranked[i] = members[indexes[i]]
	}
	return ranked
}

// QuorumForRequest returns the quorum of the given type responsible for
// signing requestID.
func (qs *quorumSelector) QuorumForRequest(list *model.MasternodeList, requestID *chainhash.Hash,
	llmqType wire.LLMQType) (*model.QuorumEntry, bool) {

	ranked := qs.RankedQuorums(list, requestID, llmqType, 1)
	if len(ranked) == 0 {
		return nil, false
	}
	return ranked[0], true
}

// QuorumForPlatform returns the verified platform quorum created at
// quorumHash.
func (qs *quorumSelector) QuorumForPlatform(list *model.MasternodeList,
	quorumHash *chainhash.Hash) (*model.QuorumEntry, bool) {

	quorum, ok := list.Quorum(qs.params.PlatformType, quorumHash)
	if !ok || !quorum.IsVerified() {
		return nil, false
	}
	return quorum, true
}
