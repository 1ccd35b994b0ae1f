package model

import (
	"net"
	"sort"
	"strconv"

	"github.com/btcsuite/btcutil/base58"
	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
)

// BlockKey identifies the block at which a masternode list entry changed.
type BlockKey struct {
	Hash   chainhash.Hash
	Height uint32
}

// MasternodeEntry is a deterministic masternode list entry. It must not be
// modified once it's part of a MasternodeList: changes are made by building
// a new entry.
type MasternodeEntry struct {
	ProRegTxHash      chainhash.Hash
	ConfirmedHash     chainhash.Hash
	IP                [16]byte
	Port              uint16
	OperatorPublicKey wire.BLSPublicKey
	KeyIDVoting       wire.KeyID
	IsValid           bool

	// Version is the entry version: it tells which BLS scheme the operator
	// key uses.
	Version          uint16
	Type             uint16
	PlatformHTTPPort uint16
	PlatformNodeID   wire.KeyID

	UpdateHeight           uint32
	KnownConfirmedAtHeight uint32

	// Values before a change, keyed by the last block they were valid at.
	PreviousOperatorPublicKeys map[BlockKey]wire.BLSPublicKey
	PreviousValidity           map[BlockKey]bool
	PreviousEntryHashes        map[BlockKey]chainhash.Hash

	entryHash chainhash.Hash
}

// NewMasternodeEntry builds an entry without history out of its relayed form.
func NewMasternodeEntry(sml *wire.SMLEntry, updateHeight uint32) *MasternodeEntry {
	entry := &MasternodeEntry{
		ProRegTxHash:      sml.ProRegTxHash,
		ConfirmedHash:     sml.ConfirmedHash,
		IP:                sml.IP,
		Port:              sml.Port,
		OperatorPublicKey: sml.OperatorPublicKey,
		KeyIDVoting:       sml.KeyIDVoting,
		IsValid:           sml.IsValid,
		Version:           sml.Version,
		Type:              sml.Type,
		PlatformHTTPPort:  sml.PlatformHTTPPort,
		PlatformNodeID:    sml.PlatformNodeID,
		UpdateHeight:      updateHeight,
	}
	if !sml.ConfirmedHash.IsZero() {
		entry.KnownConfirmedAtHeight = updateHeight
	}
	entry.entryHash = *sml.Hash()
	return entry
}

// ToSMLEntry returns the relayed form of the entry.
func (entry *MasternodeEntry) ToSMLEntry() *wire.SMLEntry {
	return &wire.SMLEntry{
		Version:           entry.Version,
		ProRegTxHash:      entry.ProRegTxHash,
		ConfirmedHash:     entry.ConfirmedHash,
		IP:                entry.IP,
		Port:              entry.Port,
		OperatorPublicKey: entry.OperatorPublicKey,
		KeyIDVoting:       entry.KeyIDVoting,
		IsValid:           entry.IsValid,
		Type:              entry.Type,
		PlatformHTTPPort:  entry.PlatformHTTPPort,
		PlatformNodeID:    entry.PlatformNodeID,
	}
}

// EntryHash returns the double sha256 of the serialized entry.
func (entry *MasternodeEntry) EntryHash() *chainhash.Hash {
	if entry.entryHash.IsZero() {
		return entry.ToSMLEntry().Hash()
	}
	hash := entry.entryHash
	return &hash
}

// IsEqual returns whether both entries hold the same relayed values,
// regardless of their history.
func (entry *MasternodeEntry) IsEqual(other *MasternodeEntry) bool {
	return entry.EntryHash().IsEqual(other.EntryHash())
}

// historyKeyAtHeight returns the oldest key of history, by height, that's
// not below height.
func historyKeyAtHeight(keys []BlockKey, height uint32) (BlockKey, bool) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Height != keys[j].Height {
			return keys[i].Height < keys[j].Height
		}
		return keys[i].Hash.Cmp(&keys[j].Hash) < 0
	})
	for _, key := range keys {
		if key.Height >= height {
			return key, true
		}
	}
	return BlockKey{}, false
}

// EntryHashAtHeight returns the entry hash the masternode had at the given
// height.
func (entry *MasternodeEntry) EntryHashAtHeight(height uint32) *chainhash.Hash {
	keys := make([]BlockKey, 0, len(entry.PreviousEntryHashes))
	for key := range entry.PreviousEntryHashes {
		keys = append(keys, key)
	}
	if key, ok := historyKeyAtHeight(keys, height); ok {
		hash := entry.PreviousEntryHashes[key]
		return &hash
	}
	if !entry.ConfirmedHash.IsZero() && height < entry.KnownConfirmedAtHeight {
		unconfirmed := entry.ToSMLEntry()
		unconfirmed.ConfirmedHash = chainhash.ZeroHash
		return unconfirmed.Hash()
	}
	return entry.EntryHash()
}

// IsValidAtHeight returns whether the masternode was valid at the given
// height.
func (entry *MasternodeEntry) IsValidAtHeight(height uint32) bool {
	keys := make([]BlockKey, 0, len(entry.PreviousValidity))
	for key := range entry.PreviousValidity {
		keys = append(keys, key)
	}
	if key, ok := historyKeyAtHeight(keys, height); ok {
		return entry.PreviousValidity[key]
	}
	return entry.IsValid
}

// OperatorPublicKeyAtHeight returns the operator key the masternode had at
// the given height.
func (entry *MasternodeEntry) OperatorPublicKeyAtHeight(height uint32) *wire.BLSPublicKey {
	keys := make([]BlockKey, 0, len(entry.PreviousOperatorPublicKeys))
	for key := range entry.PreviousOperatorPublicKeys {
		keys = append(keys, key)
	}
	if key, ok := historyKeyAtHeight(keys, height); ok {
		operatorKey := entry.PreviousOperatorPublicKeys[key]
		return &operatorKey
	}
	operatorKey := entry.OperatorPublicKey
	return &operatorKey
}

// ConfirmedHashAtHeight returns the confirmed hash known at the given
// height, or the zero hash if the masternode wasn't confirmed yet.
func (entry *MasternodeEntry) ConfirmedHashAtHeight(height uint32) *chainhash.Hash {
	if height < entry.KnownConfirmedAtHeight {
		return &chainhash.Hash{}
	}
	confirmedHash := entry.ConfirmedHash
	return &confirmedHash
}

// ConfirmedHashHashedWithProRegTxHash returns the double sha256 of the
// confirmed hash followed by the registration hash.
func (entry *MasternodeEntry) ConfirmedHashHashedWithProRegTxHash() *chainhash.Hash {
	hash := chainhash.DoubleHashConcat(&entry.ConfirmedHash, &entry.ProRegTxHash)
	return &hash
}

// ConfirmedHashHashedWithProRegTxHashAtHeight is like
// ConfirmedHashHashedWithProRegTxHash, with the confirmed hash known at the
// given height.
func (entry *MasternodeEntry) ConfirmedHashHashedWithProRegTxHashAtHeight(height uint32) *chainhash.Hash {
	hash := chainhash.DoubleHashConcat(entry.ConfirmedHashAtHeight(height), &entry.ProRegTxHash)
	return &hash
}

// IPAddress returns the masternode address as a net.IP.
func (entry *MasternodeEntry) IPAddress() net.IP {
	return entry.ToSMLEntry().IPAddress()
}

// Host returns the "ip:port" address of the masternode.
func (entry *MasternodeEntry) Host() string {
	return net.JoinHostPort(entry.IPAddress().String(), strconv.Itoa(int(entry.Port)))
}

// VotingAddress returns the base58check P2PKH address of the voting key.
func (entry *MasternodeEntry) VotingAddress(params *chaincfg.Params) string {
	return base58.CheckEncode(entry.KeyIDVoting[:], params.PubKeyHashAddrID)
}

// OperatorAddress returns the base58check P2PKH address of the operator key.
func (entry *MasternodeEntry) OperatorAddress(params *chaincfg.Params) string {
	return base58.CheckEncode(chainhash.Hash160(entry.OperatorPublicKey[:]), params.PubKeyHashAddrID)
}

// IsEvo returns whether the masternode is an Evo (platform) masternode.
func (entry *MasternodeEntry) IsEvo() bool {
	return entry.Type == wire.MasternodeTypeEvo
}

// WithUpdate returns a new entry holding the values of sml, updated at the
// given block, with the previous values of entry recorded in its history at
// previous.
func (entry *MasternodeEntry) WithUpdate(sml *wire.SMLEntry, previous BlockKey, updateHeight uint32) *MasternodeEntry {
	updated := NewMasternodeEntry(sml, updateHeight)
	updated.KnownConfirmedAtHeight = entry.KnownConfirmedAtHeight
	if entry.ConfirmedHash.IsZero() && !updated.ConfirmedHash.IsZero() {
		updated.KnownConfirmedAtHeight = updateHeight
	}

	updated.PreviousOperatorPublicKeys = copyOperatorKeys(entry.PreviousOperatorPublicKeys)
	updated.PreviousValidity = copyValidity(entry.PreviousValidity)
	updated.PreviousEntryHashes = copyEntryHashes(entry.PreviousEntryHashes)

	if updated.OperatorPublicKey != entry.OperatorPublicKey {
		if updated.PreviousOperatorPublicKeys == nil {
			updated.PreviousOperatorPublicKeys = make(map[BlockKey]wire.BLSPublicKey)
		}
		updated.PreviousOperatorPublicKeys[previous] = entry.OperatorPublicKey
	}
	if updated.IsValid != entry.IsValid {
		if updated.PreviousValidity == nil {
			updated.PreviousValidity = make(map[BlockKey]bool)
		}
		updated.PreviousValidity[previous] = entry.IsValid
	}
	if !updated.EntryHash().IsEqual(entry.EntryHash()) {
		if updated.PreviousEntryHashes == nil {
			updated.PreviousEntryHashes = make(map[BlockKey]chainhash.Hash)
		}
		updated.PreviousEntryHashes[previous] = *entry.EntryHash()
	}
	return updated
}

func copyOperatorKeys(src map[BlockKey]wire.BLSPublicKey) map[BlockKey]wire.BLSPublicKey {
	if src == nil {
		return nil
	}
	dst := make(map[BlockKey]wire.BLSPublicKey, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

func copyValidity(src map[BlockKey]bool) map[BlockKey]bool {
	if src == nil {
		return nil
	}
	dst := make(map[BlockKey]bool, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

func copyEntryHashes(src map[BlockKey]chainhash.Hash) map[BlockKey]chainhash.Hash {
	if src == nil {
		return nil
	}
	dst := make(map[BlockKey]chainhash.Hash, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
