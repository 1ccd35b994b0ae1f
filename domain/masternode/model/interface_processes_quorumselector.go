package model

import (
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
)

// QuorumSelector deterministically ranks quorums and quorum members for a
// signing request.
type QuorumSelector interface {
	RankedQuorums(list *MasternodeList, requestID *chainhash.Hash, llmqType wire.LLMQType, count int) []*QuorumEntry
	RankedMembers(quorum *QuorumEntry, members []*MasternodeEntry, requestID *chainhash.Hash, count int) []*MasternodeEntry
	QuorumForRequest(list *MasternodeList, requestID *chainhash.Hash, llmqType wire.LLMQType) (*QuorumEntry, bool)
	QuorumForPlatform(list *MasternodeList, quorumHash *chainhash.Hash) (*QuorumEntry, bool)
}
