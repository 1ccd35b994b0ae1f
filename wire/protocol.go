package wire

import (
	"fmt"
)

// Protocol versions at which the masternode list messages changed shape.
const (
	// ProtocolVersion is the latest protocol version this package supports.
	ProtocolVersion uint32 = 70232

	// MinProtocolVersion is the oldest protocol version peers may use to
	// serve masternode list diffs.
	MinProtocolVersion uint32 = 70218

	// BLSSchemeProtocolVersion adds a diff version field to mnlistdiff,
	// right after the coinbase transaction.
	BLSSchemeProtocolVersion uint32 = 70225

	// VersionedEntriesProtocolVersion prefixes every masternode list entry
	// with its version.
	VersionedEntriesProtocolVersion uint32 = 70228

	// DiffVersionFirstProtocolVersion moves the diff version field to the
	// front of mnlistdiff.
	DiffVersionFirstProtocolVersion uint32 = 70229

	// ChainLockSigsProtocolVersion appends the quorum ChainLock signatures
	// to mnlistdiff.
	ChainLockSigsProtocolVersion uint32 = 70230
)

// LLMQType identifies a long living masternode quorum configuration.
type LLMQType uint8

// Known LLMQ types.
const (
	LLMQTypeNone            LLMQType = 0
	LLMQType50_60           LLMQType = 1
	LLMQType400_60          LLMQType = 2
	LLMQType400_85          LLMQType = 3
	LLMQType100_67          LLMQType = 4
	LLMQType60_75           LLMQType = 5
	LLMQType25_67           LLMQType = 6
	LLMQTypeTest            LLMQType = 100
	LLMQTypeDevnet          LLMQType = 101
	LLMQTypeTestV17         LLMQType = 102
	LLMQTypeTestDIP0024     LLMQType = 103
	LLMQTypeTestInstantSend LLMQType = 104
	LLMQTypeDevnetDIP0024   LLMQType = 105
	LLMQTypeTestPlatform    LLMQType = 106
	LLMQTypeDevnetPlatform  LLMQType = 107
)

var llmqTypeStrings = map[LLMQType]string{
	LLMQType50_60:           "llmq_50_60",
	LLMQType400_60:          "llmq_400_60",
	LLMQType400_85:          "llmq_400_85",
	LLMQType100_67:          "llmq_100_67",
	LLMQType60_75:           "llmq_60_75",
	LLMQType25_67:           "llmq_25_67",
	LLMQTypeTest:            "llmq_test",
	LLMQTypeDevnet:          "llmq_devnet",
	LLMQTypeTestV17:         "llmq_test_v17",
	LLMQTypeTestDIP0024:     "llmq_test_dip0024",
	LLMQTypeTestInstantSend: "llmq_test_instantsend",
	LLMQTypeDevnetDIP0024:   "llmq_devnet_dip0024",
	LLMQTypeTestPlatform:    "llmq_test_platform",
	LLMQTypeDevnetPlatform:  "llmq_devnet_platform",
}

// IsKnown returns whether t is one of the LLMQ types defined by the
// protocol.
func (t LLMQType) IsKnown() bool {
	_, ok := llmqTypeStrings[t]
	return ok
}

// String returns the LLMQType in human-readable form.
func (t LLMQType) String() string {
	if s, ok := llmqTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Unknown LLMQType (%d)", uint8(t))
}

// DashNet represents which dash network a message belongs to.
type DashNet uint32

// Constants used to indicate the message dash network.
const (
	// Mainnet represents the main dash network.
	Mainnet DashNet = 0xbd6b0cbf

	// Testnet represents the test network.
	Testnet DashNet = 0xffcae2ce

	// Devnet represents a named development network.
	Devnet DashNet = 0xceffcae2

	// Regtest represents the regression test network.
	Regtest DashNet = 0xdcb7c1fc
)

var dnStrings = map[DashNet]string{
	Mainnet: "Mainnet",
	Testnet: "Testnet",
	Devnet:  "Devnet",
	Regtest: "Regtest",
}

// String returns the DashNet in human-readable form.
func (n DashNet) String() string {
	if s, ok := dnStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown DashNet (%d)", uint32(n))
}
