package model

import (
	"fmt"

	"github.com/dashevo/dashspv/util/bitset"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
)

// VerificationStatus is the result of validating a quorum commitment.
type VerificationStatus uint8

// Verification statuses. A quorum starts Unverified and moves to exactly one
// of the other statuses.
const (
	StatusUnverified VerificationStatus = iota
	StatusVerified
	StatusInvalid
	StatusSkipped
)

var verificationStatusStrings = map[VerificationStatus]string{
	StatusUnverified: "unverified",
	StatusVerified:   "verified",
	StatusInvalid:    "invalid",
	StatusSkipped:    "skipped",
}

func (status VerificationStatus) String() string {
	if str, ok := verificationStatusStrings[status]; ok {
		return str
	}
	return fmt.Sprintf("VerificationStatus(%d)", uint8(status))
}

// QuorumKey identifies a quorum within a masternode list.
type QuorumKey struct {
	LLMQType   wire.LLMQType
	QuorumHash chainhash.Hash
}

func (key QuorumKey) String() string {
	return fmt.Sprintf("%s:%s", key.LLMQType, key.QuorumHash)
}

// Less orders keys by llmq type, then by quorum hash.
func (key QuorumKey) Less(other QuorumKey) bool {
	if key.LLMQType != other.LLMQType {
		return key.LLMQType < other.LLMQType
	}
	return key.QuorumHash.Cmp(&other.QuorumHash) < 0
}

// QuorumEntry is a final quorum commitment known to a masternode list.
// It must not be modified once constructed.
type QuorumEntry struct {
	Version                          uint16
	LLMQType                         wire.LLMQType
	QuorumHash                       chainhash.Hash
	QuorumIndex                      int16
	Signers                          *bitset.BitSet
	ValidMembers                     *bitset.BitSet
	QuorumPublicKey                  wire.BLSPublicKey
	QuorumVvecHash                   chainhash.Hash
	ThresholdSignature               wire.BLSSignature
	AllCommitmentAggregatedSignature wire.BLSSignature

	CommitmentHash chainhash.Hash
	EntryHash      chainhash.Hash

	Status VerificationStatus
	Saved  bool
}

// NewQuorumEntry builds an unverified quorum entry out of a relayed
// commitment.
func NewQuorumEntry(qc *wire.QuorumCommitment) *QuorumEntry {
	return &QuorumEntry{
		Version:                          qc.Version,
		LLMQType:                         qc.LLMQType,
		QuorumHash:                       qc.QuorumHash,
		QuorumIndex:                      qc.QuorumIndex,
		Signers:                          qc.Signers.Clone(),
		ValidMembers:                     qc.ValidMembers.Clone(),
		QuorumPublicKey:                  qc.QuorumPublicKey,
		QuorumVvecHash:                   qc.QuorumVvecHash,
		ThresholdSignature:               qc.QuorumSig,
		AllCommitmentAggregatedSignature: qc.MembersSig,
		CommitmentHash:                   *qc.CommitmentHash(),
		EntryHash:                        *qc.Hash(),
		Status:                           StatusUnverified,
	}
}

// ToCommitment returns the relayed form of the quorum entry.
func (quorum *QuorumEntry) ToCommitment() *wire.QuorumCommitment {
	return &wire.QuorumCommitment{
		Version:         quorum.Version,
		LLMQType:        quorum.LLMQType,
		QuorumHash:      quorum.QuorumHash,
		QuorumIndex:     quorum.QuorumIndex,
		Signers:         quorum.Signers.Clone(),
		ValidMembers:    quorum.ValidMembers.Clone(),
		QuorumPublicKey: quorum.QuorumPublicKey,
		QuorumVvecHash:  quorum.QuorumVvecHash,
		QuorumSig:       quorum.ThresholdSignature,
		MembersSig:      quorum.AllCommitmentAggregatedSignature,
	}
}

// Key returns the identity of the quorum.
func (quorum *QuorumEntry) Key() QuorumKey {
	return QuorumKey{LLMQType: quorum.LLMQType, QuorumHash: quorum.QuorumHash}
}

// IsRotated returns whether the quorum is a rotated (indexed) quorum.
func (quorum *QuorumEntry) IsRotated() bool {
	return quorum.Version == wire.QuorumCommitmentVersionLegacyIndexed ||
		quorum.Version == wire.QuorumCommitmentVersionBasicIndexed
}

// IsLegacyBLS returns whether the quorum keys use the legacy BLS scheme.
func (quorum *QuorumEntry) IsLegacyBLS() bool {
	return quorum.Version < wire.QuorumCommitmentVersionBasic
}

// SignersCount returns the number of members that signed the commitment.
func (quorum *QuorumEntry) SignersCount() int {
	return quorum.Signers.Count()
}

// ValidMembersCount returns the number of members valid in the commitment.
func (quorum *QuorumEntry) ValidMembersCount() int {
	return quorum.ValidMembers.Count()
}

// IsVerified returns whether the quorum signatures were verified.
func (quorum *QuorumEntry) IsVerified() bool {
	return quorum.Status == StatusVerified
}

// WithStatus returns a copy of the quorum with the given verification status.
func (quorum *QuorumEntry) WithStatus(status VerificationStatus) *QuorumEntry {
	clone := *quorum
	clone.Status = status
	return &clone
}

// WithSaved returns a copy of the quorum with the saved flag set to saved.
func (quorum *QuorumEntry) WithSaved(saved bool) *QuorumEntry {
	clone := *quorum
	clone.Saved = saved
	return &clone
}

func (quorum *QuorumEntry) String() string {
	return fmt.Sprintf("quorum %s (%s)", quorum.Key(), quorum.Status)
}
