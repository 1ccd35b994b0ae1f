package chaincfg

import (
	"github.com/dashevo/dashspv/wire"
)

// LLMQParams defines a long living masternode quorum configuration.
type LLMQParams struct {
	// Type is the identifier of the quorum configuration on the wire.
	Type wire.LLMQType

	// Size is the number of members of a quorum.
	Size int

	// MinSize is the minimum number of valid members for a quorum
	// commitment to be accepted.
	MinSize int

	// Threshold is the number of member signatures needed to recover a
	// quorum signature.
	Threshold int

	// DKGInterval is the number of blocks between two quorums of this type.
	DKGInterval uint32

	// SigningActiveQuorumCount is the number of most recent quorums of this
	// type that take part in signing sessions.
	SigningActiveQuorumCount int

	// KeepOldConnections is the number of quorums to stay connected to.
	KeepOldConnections int

	// UseRotation is set for DIP24 rotated quorums.
	UseRotation bool
}

var llmqParams = map[wire.LLMQType]*LLMQParams{
	wire.LLMQType50_60: {
		Type: wire.LLMQType50_60, Size: 50, MinSize: 40, Threshold: 30,
		DKGInterval: 24, SigningActiveQuorumCount: 24, KeepOldConnections: 25,
	},
	wire.LLMQType400_60: {
		Type: wire.LLMQType400_60, Size: 400, MinSize: 300, Threshold: 240,
		DKGInterval: 288, SigningActiveQuorumCount: 4, KeepOldConnections: 5,
	},
	wire.LLMQType400_85: {
		Type: wire.LLMQType400_85, Size: 400, MinSize: 350, Threshold: 340,
		DKGInterval: 576, SigningActiveQuorumCount: 4, KeepOldConnections: 5,
	},
	wire.LLMQType100_67: {
		Type: wire.LLMQType100_67, Size: 100, MinSize: 80, Threshold: 67,
		DKGInterval: 24, SigningActiveQuorumCount: 24, KeepOldConnections: 25,
	},
	wire.LLMQType60_75: {
		Type: wire.LLMQType60_75, Size: 60, MinSize: 50, Threshold: 45,
		DKGInterval: 288, SigningActiveQuorumCount: 32, KeepOldConnections: 64,
		UseRotation: true,
	},
	wire.LLMQType25_67: {
		Type: wire.LLMQType25_67, Size: 25, MinSize: 22, Threshold: 17,
		DKGInterval: 24, SigningActiveQuorumCount: 24, KeepOldConnections: 25,
	},
	wire.LLMQTypeTest: {
		Type: wire.LLMQTypeTest, Size: 3, MinSize: 2, Threshold: 2,
		DKGInterval: 24, SigningActiveQuorumCount: 2, KeepOldConnections: 3,
	},
	wire.LLMQTypeDevnet: {
		Type: wire.LLMQTypeDevnet, Size: 12, MinSize: 7, Threshold: 6,
		DKGInterval: 24, SigningActiveQuorumCount: 4, KeepOldConnections: 5,
	},
	wire.LLMQTypeTestV17: {
		Type: wire.LLMQTypeTestV17, Size: 3, MinSize: 2, Threshold: 2,
		DKGInterval: 24, SigningActiveQuorumCount: 2, KeepOldConnections: 3,
	},
	wire.LLMQTypeTestDIP0024: {
		Type: wire.LLMQTypeTestDIP0024, Size: 4, MinSize: 4, Threshold: 2,
		DKGInterval: 24, SigningActiveQuorumCount: 2, KeepOldConnections: 4,
		UseRotation: true,
	},
	wire.LLMQTypeTestInstantSend: {
		Type: wire.LLMQTypeTestInstantSend, Size: 3, MinSize: 2, Threshold: 2,
		DKGInterval: 24, SigningActiveQuorumCount: 2, KeepOldConnections: 3,
	},
	wire.LLMQTypeDevnetDIP0024: {
		Type: wire.LLMQTypeDevnetDIP0024, Size: 8, MinSize: 6, Threshold: 4,
		DKGInterval: 48, SigningActiveQuorumCount: 2, KeepOldConnections: 4,
		UseRotation: true,
	},
	wire.LLMQTypeTestPlatform: {
		Type: wire.LLMQTypeTestPlatform, Size: 3, MinSize: 2, Threshold: 2,
		DKGInterval: 24, SigningActiveQuorumCount: 2, KeepOldConnections: 4,
	},
	wire.LLMQTypeDevnetPlatform: {
		Type: wire.LLMQTypeDevnetPlatform, Size: 12, MinSize: 9, Threshold: 8,
		DKGInterval: 24, SigningActiveQuorumCount: 4, KeepOldConnections: 5,
	},
}

// LLMQ returns the parameters of the given quorum type, if it's known.
func LLMQ(llmqType wire.LLMQType) (*LLMQParams, bool) {
	params, ok := llmqParams[llmqType]
	return params, ok
}
