package model

import (
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
)

// DiffMessage is a decoded mnlistdiff: the changes that turn the list at
// BaseBlockHash into the list at BlockHash.
type DiffMessage struct {
	ProtocolVersion uint32
	Version         uint16

	BaseBlockHash chainhash.Hash
	BlockHash     chainhash.Hash

	TotalTransactions uint32
	MerkleHashes      []*chainhash.Hash
	MerkleFlags       []byte

	CoinbaseTx      *wire.MsgTx
	CoinbasePayload *wire.CoinbasePayload

	DeletedMasternodes []*chainhash.Hash
	AddedOrModified    []*wire.SMLEntry
	DeletedQuorums     []QuorumKey
	NewQuorums         []*QuorumEntry
	QuorumsCLSigs      []*wire.QuorumCLSig
}

// IsEmpty returns whether the diff changes neither list.
func (diff *DiffMessage) IsEmpty() bool {
	return len(diff.DeletedMasternodes) == 0 && len(diff.AddedOrModified) == 0 &&
		len(diff.DeletedQuorums) == 0 && len(diff.NewQuorums) == 0
}

// CoinbaseHash returns the hash of the coinbase transaction of the diff.
func (diff *DiffMessage) CoinbaseHash() *chainhash.Hash {
	if diff.CoinbaseTx == nil {
		return nil
	}
	return diff.CoinbaseTx.TxHash()
}

// QRInfoMessage is a decoded qrinfo: the diffs and rotation snapshots needed
// to rebuild the rotated quorums at a block.
type QRInfoMessage struct {
	SnapshotAtHMinusC  *wire.LLMQSnapshot
	SnapshotAtHMinus2C *wire.LLMQSnapshot
	SnapshotAtHMinus3C *wire.LLMQSnapshot

	DiffTip        *DiffMessage
	DiffAtH        *DiffMessage
	DiffAtHMinusC  *DiffMessage
	DiffAtHMinus2C *DiffMessage
	DiffAtHMinus3C *DiffMessage

	ExtraShare         bool
	SnapshotAtHMinus4C *wire.LLMQSnapshot
	DiffAtHMinus4C     *DiffMessage

	LastCommitmentPerIndex []*QuorumEntry
	SnapshotList           []*wire.LLMQSnapshot
	DiffList               []*DiffMessage
}

// Diffs returns the diffs of the message in the order they apply: oldest
// rotation cycle first, then the work block, the tip, and the extra diffs.
func (msg *QRInfoMessage) Diffs() []*DiffMessage {
	diffs := make([]*DiffMessage, 0, 6+len(msg.DiffList))
	if msg.ExtraShare && msg.DiffAtHMinus4C != nil {
		diffs = append(diffs, msg.DiffAtHMinus4C)
	}
	diffs = append(diffs, msg.DiffAtHMinus3C, msg.DiffAtHMinus2C, msg.DiffAtHMinusC, msg.DiffAtH, msg.DiffTip)
	diffs = append(diffs, msg.DiffList...)
	return diffs
}

// DiffResult is the outcome of applying a DiffMessage to its base list.
type DiffResult struct {
	MasternodeList *MasternodeList

	FoundCoinbase       bool
	ValidCoinbase       bool
	RootMNListValid     bool
	RootQuorumListValid bool
	ValidQuorums        bool

	AddedMasternodes    []*MasternodeEntry
	ModifiedMasternodes []*MasternodeEntry
	AddedQuorums        []*QuorumEntry

	NeededMissingMasternodeLists []*chainhash.Hash
}

// IsValid returns whether every check of the diff passed.
func (result *DiffResult) IsValid() bool {
	return result.FoundCoinbase && result.ValidCoinbase && result.RootMNListValid &&
		result.RootQuorumListValid && result.ValidQuorums
}

// QRInfoResult is the outcome of applying a QRInfoMessage.
type QRInfoResult struct {
	// Results holds the result of every diff of the message, in the order
	// returned by QRInfoMessage.Diffs.
	Results []*DiffResult

	Tip        *DiffResult
	AtH        *DiffResult
	AtHMinusC  *DiffResult
	AtHMinus2C *DiffResult
	AtHMinus3C *DiffResult
	AtHMinus4C *DiffResult

	Snapshots map[chainhash.Hash]*wire.LLMQSnapshot

	// LastCommitmentPerIndex holds the last rotated commitment of every
	// quorum index, with the status of its verification.
	LastCommitmentPerIndex []*QuorumEntry
}

// IsValid returns whether every diff of the message was valid and no last
// commitment turned out invalid.
func (result *QRInfoResult) IsValid() bool {
	for _, diffResult := range result.Results {
		if !diffResult.IsValid() {
			return false
		}
	}
	for _, quorum := range result.LastCommitmentPerIndex {
		if quorum.Status == StatusInvalid {
			return false
		}
	}
	return len(result.Results) > 0
}
