package chaincfg

import (
	"math"

	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

// Checkpoint identifies a known good block. Masternode lists at checkpoints
// are never evicted from memory.
type Checkpoint struct {
	Height uint32
	Hash   *chainhash.Hash
}

// Params defines a Dash network by its parameters. These parameters are used
// to tell apart masternode lists, quorums and addresses of one network from
// those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.DashNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// ProtocolVersion is the protocol version requests are issued with.
	ProtocolVersion uint32

	// GenesisHash is the hash of the first block of the chain.
	GenesisHash *chainhash.Hash

	// DIP0003ActivationHeight is the height of the first block with a
	// deterministic masternode list.
	DIP0003ActivationHeight uint32

	// DIP0006ActivationHeight is the height from which coinbase transactions
	// commit to the quorum list.
	DIP0006ActivationHeight uint32

	// DIP0024ActivationHeight is the height from which rotated quorums are
	// mined.
	DIP0024ActivationHeight uint32

	// ConfirmedHashLeafActivationHeight is the height from which confirmed
	// masternode list entries are committed to by the hash of their
	// confirmed hash and registration hash instead of their entry hash.
	// It's math.MaxUint32 on networks that never switched.
	ConfirmedHashLeafActivationHeight uint32

	// Quorum types used by each feature.
	ChainLocksType         wire.LLMQType
	InstantSendType        wire.LLMQType
	InstantSendDIP0024Type wire.LLMQType
	PlatformType           wire.LLMQType

	// Checkpoints are ordered from oldest to newest.
	Checkpoints []Checkpoint

	// Address encoding magics
	PubKeyHashAddrID byte // First byte of a P2PKH address
	ScriptHashAddrID byte // First byte of a P2SH address
}

// LLMQ returns the parameters of the given quorum type. Quorum parameters are
// shared by all networks.
func (p *Params) LLMQ(llmqType wire.LLMQType) (*LLMQParams, bool) {
	return LLMQ(llmqType)
}

// IsQuorumsRootRequired returns whether a block at the given height must
// commit to the quorum list.
func (p *Params) IsQuorumsRootRequired(height uint32) bool {
	return height >= p.DIP0006ActivationHeight
}

// UsesConfirmedHashLeaf returns whether masternode list merkle leaves at the
// given height are built from confirmed hashes.
func (p *Params) UsesConfirmedHashLeaf(height uint32) bool {
	return height >= p.ConfirmedHashLeafActivationHeight
}

// CheckpointHeights returns the heights of all the checkpoints of the network.
func (p *Params) CheckpointHeights() []uint32 {
	heights := make([]uint32, len(p.Checkpoints))
	for i, checkpoint := range p.Checkpoints {
		heights[i] = checkpoint.Height
	}
	return heights
}

// MainnetParams defines the network parameters for the main Dash network.
var MainnetParams = Params{
	Name:            "mainnet",
	Net:             wire.Mainnet,
	DefaultPort:     "9999",
	ProtocolVersion: wire.ProtocolVersion,
	GenesisHash:     newHashFromStr("00000ffd590b1485b3caadc19b22e6379c733355108f107a430458cdf3407ab6"),

	DIP0003ActivationHeight:           1028160,
	DIP0006ActivationHeight:           1088640,
	DIP0024ActivationHeight:           1737792,
	ConfirmedHashLeafActivationHeight: math.MaxUint32,

	ChainLocksType:         wire.LLMQType400_60,
	InstantSendType:        wire.LLMQType50_60,
	InstantSendDIP0024Type: wire.LLMQType60_75,
	PlatformType:           wire.LLMQType100_67,

	Checkpoints: []Checkpoint{
		{0, newHashFromStr("00000ffd590b1485b3caadc19b22e6379c733355108f107a430458cdf3407ab6")},
	},

	PubKeyHashAddrID: 76, // starts with X
	ScriptHashAddrID: 16, // starts with 7
}

// TestnetParams defines the network parameters for the test Dash network.
var TestnetParams = Params{
	Name:            "testnet",
	Net:             wire.Testnet,
	DefaultPort:     "19999",
	ProtocolVersion: wire.ProtocolVersion,
	GenesisHash:     newHashFromStr("00000bafbc94add76cb75e2ec92894837288a481e5c005f6563d91623bf8bc2c"),

	DIP0003ActivationHeight:           7000,
	DIP0006ActivationHeight:           78800,
	DIP0024ActivationHeight:           769700,
	ConfirmedHashLeafActivationHeight: math.MaxUint32,

	ChainLocksType:         wire.LLMQType50_60,
	InstantSendType:        wire.LLMQType50_60,
	InstantSendDIP0024Type: wire.LLMQType60_75,
	PlatformType:           wire.LLMQType25_67,

	Checkpoints: []Checkpoint{
		{0, newHashFromStr("00000bafbc94add76cb75e2ec92894837288a481e5c005f6563d91623bf8bc2c")},
	},

	PubKeyHashAddrID: 140, // starts with y
	ScriptHashAddrID: 19,  // starts with 8 or 9
}

// DevnetParams defines the network parameters for a Dash development network.
var DevnetParams = Params{
	Name:            "devnet",
	Net:             wire.Devnet,
	DefaultPort:     "20001",
	ProtocolVersion: wire.ProtocolVersion,
	GenesisHash:     newHashFromStr("000008ca1832a4baf228eb1553c03d3a2c8e02399550dd6ea8d65cec3ef23d2e"),

	DIP0003ActivationHeight:           2,
	DIP0006ActivationHeight:           2,
	DIP0024ActivationHeight:           300,
	ConfirmedHashLeafActivationHeight: math.MaxUint32,

	ChainLocksType:         wire.LLMQTypeDevnet,
	InstantSendType:        wire.LLMQTypeDevnet,
	InstantSendDIP0024Type: wire.LLMQTypeDevnetDIP0024,
	PlatformType:           wire.LLMQTypeDevnetPlatform,

	PubKeyHashAddrID: 140, // starts with y
	ScriptHashAddrID: 19,  // starts with 8 or 9
}

// RegressionNetParams defines the network parameters for the regression test
// Dash network.
var RegressionNetParams = Params{
	Name:            "regtest",
	Net:             wire.Regtest,
	DefaultPort:     "19899",
	ProtocolVersion: wire.ProtocolVersion,
	GenesisHash:     newHashFromStr("000008ca1832a4baf228eb1553c03d3a2c8e02399550dd6ea8d65cec3ef23d2e"),

	DIP0003ActivationHeight:           432,
	DIP0006ActivationHeight:           432,
	DIP0024ActivationHeight:           900,
	ConfirmedHashLeafActivationHeight: math.MaxUint32,

	ChainLocksType:         wire.LLMQTypeTest,
	InstantSendType:        wire.LLMQTypeTestInstantSend,
	InstantSendDIP0024Type: wire.LLMQTypeTestDIP0024,
	PlatformType:           wire.LLMQTypeTestPlatform,

	PubKeyHashAddrID: 140, // starts with y
	ScriptHashAddrID: 19,  // starts with 8 or 9
}

var (
	// ErrDuplicateNet describes an error where the parameters for a Dash
	// network could not be set due to the network already being a standard
	// network or previously-registered into this package.
	ErrDuplicateNet = errors.New("duplicate Dash network")

	// ErrUnknownNet describes an error where the requested network name
	// isn't registered.
	ErrUnknownNet = errors.New("unknown Dash network")
)

var registeredNets = make(map[string]*Params)

// Register registers the network parameters for a Dash network. This may
// error with ErrDuplicateNet if a network of the same name is already
// registered.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Name]; ok {
		return errors.Wrapf(ErrDuplicateNet, "network %s", params.Name)
	}
	registeredNets[params.Name] = params
	return nil
}

// ParamsByName returns the parameters of the registered network of the given
// name.
func ParamsByName(name string) (*Params, error) {
	params, ok := registeredNets[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNet, "network %s", name)
	}
	return params, nil
}

// mustRegister performs the same function as Register except it panics if there
// is an error. This should only be called from package init functions.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

// newHashFromStr converts the passed big-endian hex string into a
// chainhash.Hash. It panics on an error since it will only be called with
// hard-coded, and therefore known good, hashes.
func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}
	return hash
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainnetParams)
	mustRegister(&TestnetParams)
	mustRegister(&DevnetParams)
	mustRegister(&RegressionNetParams)
}
