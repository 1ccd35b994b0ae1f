package model

import (
	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
)

// QuorumValidator verifies final quorum commitments against the quorum
// members.
type QuorumValidator interface {
	Validate(quorum *QuorumEntry, members []*MasternodeEntry) (VerificationStatus, error)
	MembersForQuorum(list *MasternodeList, llmqParams *chaincfg.LLMQParams,
		quorumHash *chainhash.Hash) []*MasternodeEntry
	RotatedMembers(llmqParams *chaincfg.LLMQParams, cycle *RotationCycle) ([][]*MasternodeEntry, error)
}

// RotationQuarter is what a past rotation cycle contributes to the members
// of a later one: the list at the work block of the cycle and the snapshot
// of the masternodes its quorums used.
type RotationQuarter struct {
	WorkList *MasternodeList
	Snapshot *wire.LLMQSnapshot
}

// RotationCycle holds what rebuilding the members of the rotated quorums of
// the cycle starting at block H takes. The work block of a cycle lies 8
// blocks below its first block.
type RotationCycle struct {
	// WorkList is the list at H-8.
	WorkList *MasternodeList

	HMinusC  RotationQuarter
	HMinus2C RotationQuarter
	HMinus3C RotationQuarter
}
