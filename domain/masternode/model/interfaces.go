package model

import (
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
)

// BlockHeightLookup resolves the height of a block known to the header
// chain.
type BlockHeightLookup interface {
	BlockHeight(blockHash *chainhash.Hash) (height uint32, ok bool)
}

// BlockHeightLookupFunc is an adapter allowing an ordinary function to be
// used as a BlockHeightLookup.
type BlockHeightLookupFunc func(blockHash *chainhash.Hash) (uint32, bool)

// BlockHeight calls f(blockHash).
func (f BlockHeightLookupFunc) BlockHeight(blockHash *chainhash.Hash) (uint32, bool) {
	return f(blockHash)
}

// MasternodeListLookup loads a previously stored masternode list.
type MasternodeListLookup interface {
	MasternodeList(blockHash *chainhash.Hash) (list *MasternodeList, found bool, err error)
}

// MasternodeListLookupFunc is an adapter allowing an ordinary function to be
// used as a MasternodeListLookup.
type MasternodeListLookupFunc func(blockHash *chainhash.Hash) (*MasternodeList, bool, error)

// MasternodeList calls f(blockHash).
func (f MasternodeListLookupFunc) MasternodeList(blockHash *chainhash.Hash) (*MasternodeList, bool, error) {
	return f(blockHash)
}

// ThresholdSignatureVerifier verifies BLS signatures. When more than one
// public key is given, the signature is verified as an aggregate of
// signatures of message by every key.
type ThresholdSignatureVerifier interface {
	VerifyThresholdSignature(message *chainhash.Hash, signature *wire.BLSSignature,
		publicKeys []*wire.BLSPublicKey, useLegacyScheme bool) bool
}

// ThresholdSignatureVerifierFunc is an adapter allowing an ordinary function
// to be used as a ThresholdSignatureVerifier.
type ThresholdSignatureVerifierFunc func(message *chainhash.Hash, signature *wire.BLSSignature,
	publicKeys []*wire.BLSPublicKey, useLegacyScheme bool) bool

// VerifyThresholdSignature calls f(message, signature, publicKeys, useLegacyScheme).
func (f ThresholdSignatureVerifierFunc) VerifyThresholdSignature(message *chainhash.Hash,
	signature *wire.BLSSignature, publicKeys []*wire.BLSPublicKey, useLegacyScheme bool) bool {

	return f(message, signature, publicKeys, useLegacyScheme)
}

// LegacySchemePolicy is implemented by ThresholdSignatureVerifiers that
// can't check signatures of the legacy BLS scheme. Quorums signed with that
// scheme are skipped when SkipsLegacyScheme returns true.
type LegacySchemePolicy interface {
	SkipsLegacyScheme() bool
}

// InsightFallback asks an external block explorer for a block the header
// chain doesn't know yet, so that a later BlockHeightLookup succeeds.
type InsightFallback interface {
	AddInsightFallback(blockHash *chainhash.Hash)
}

// InsightFallbackFunc is an adapter allowing an ordinary function to be used
// as an InsightFallback.
type InsightFallbackFunc func(blockHash *chainhash.Hash)

// AddInsightFallback calls f(blockHash).
func (f InsightFallbackFunc) AddInsightFallback(blockHash *chainhash.Hash) {
	f(blockHash)
}

// MerkleRootLookup resolves the transactions merkle root of a block header.
type MerkleRootLookup interface {
	MerkleRoot(blockHash *chainhash.Hash) (merkleRoot *chainhash.Hash, ok bool)
}

// MerkleRootLookupFunc is an adapter allowing an ordinary function to be used
// as a MerkleRootLookup.
type MerkleRootLookupFunc func(blockHash *chainhash.Hash) (*chainhash.Hash, bool)

// MerkleRoot calls f(blockHash).
func (f MerkleRootLookupFunc) MerkleRoot(blockHash *chainhash.Hash) (*chainhash.Hash, bool) {
	return f(blockHash)
}

// QuorumTypeFilter decides which quorum types get their signatures verified.
type QuorumTypeFilter interface {
	ShouldProcessQuorumType(llmqType wire.LLMQType) bool
}

// QuorumTypeFilterFunc is an adapter allowing an ordinary function to be used
// as a QuorumTypeFilter.
type QuorumTypeFilterFunc func(llmqType wire.LLMQType) bool

// ShouldProcessQuorumType calls f(llmqType).
func (f QuorumTypeFilterFunc) ShouldProcessQuorumType(llmqType wire.LLMQType) bool {
	return f(llmqType)
}
