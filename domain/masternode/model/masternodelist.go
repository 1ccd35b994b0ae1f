package model

import (
	"fmt"
	"sort"

	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

// MasternodeList is the deterministic masternode list and the quorum list at
// a given block. A MasternodeList is immutable: every operation that changes
// it returns a new list, so it may be shared freely between goroutines.
type MasternodeList struct {
	blockHash chainhash.Hash
	height    uint32

	// entries are sorted by registration hash, compared as 256-bit numbers.
	entries       []*MasternodeEntry
	entriesByHash map[chainhash.Hash]*MasternodeEntry

	quorums map[wire.LLMQType]map[chainhash.Hash]*QuorumEntry

	masternodeMerkleRoot *chainhash.Hash
	quorumMerkleRoot     *chainhash.Hash
}

// NewMasternodeList builds a list out of the given entries and quorums.
// Duplicate masternodes or quorums are rejected as an inconsistent diff.
func NewMasternodeList(blockHash *chainhash.Hash, height uint32,
	entries []*MasternodeEntry, quorums []*QuorumEntry) (*MasternodeList, error) {

	list := &MasternodeList{
		blockHash:     *blockHash,
		height:        height,
		entries:       make([]*MasternodeEntry, 0, len(entries)),
		entriesByHash: make(map[chainhash.Hash]*MasternodeEntry, len(entries)),
		quorums:       make(map[wire.LLMQType]map[chainhash.Hash]*QuorumEntry),
	}
	for _, entry := range entries {
		if _, exists := list.entriesByHash[entry.ProRegTxHash]; exists {
			return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff,
				"masternode %s appears twice in the list at %s", entry.ProRegTxHash, blockHash)
		}
		list.entriesByHash[entry.ProRegTxHash] = entry
		list.entries = append(list.entries, entry)
	}
	sortEntries(list.entries)

	for _, quorum := range quorums {
		quorumsOfType, ok := list.quorums[quorum.LLMQType]
		if !ok {
			quorumsOfType = make(map[chainhash.Hash]*QuorumEntry)
			list.quorums[quorum.LLMQType] = quorumsOfType
		}
		if _, exists := quorumsOfType[quorum.QuorumHash]; exists {
			return nil, errors.Wrapf(ruleerrors.ErrInconsistentDiff,
				"%s appears twice in the list at %s", quorum.Key(), blockHash)
		}
		quorumsOfType[quorum.QuorumHash] = quorum
	}
	return list, nil
}

// EmptyMasternodeList returns the list that precedes any masternode
// registration.
func EmptyMasternodeList() *MasternodeList {
	list, _ := NewMasternodeList(&chainhash.ZeroHash, 0, nil, nil)
	return list
}

func sortEntries(entries []*MasternodeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ProRegTxHash.Cmp(&entries[j].ProRegTxHash) < 0
	})
}

func (list *MasternodeList) clone() *MasternodeList {
	clone := *list
	return &clone
}

// BlockHash returns the hash of the block the list describes.
func (list *MasternodeList) BlockHash() *chainhash.Hash {
	hash := list.blockHash
	return &hash
}

// Height returns the height of the block the list describes.
func (list *MasternodeList) Height() uint32 {
	return list.height
}

// Len returns the number of masternodes in the list.
func (list *MasternodeList) Len() int {
	return len(list.entries)
}

// Entry returns the masternode registered by proRegTxHash.
func (list *MasternodeList) Entry(proRegTxHash *chainhash.Hash) (*MasternodeEntry, bool) {
	entry, ok := list.entriesByHash[*proRegTxHash]
	return entry, ok
}

// Entries returns the masternodes of the list in list order.
func (list *MasternodeList) Entries() []*MasternodeEntry {
	entries := make([]*MasternodeEntry, len(list.entries))
	copy(entries, list.entries)
	return entries
}

// ValidEntries returns the valid masternodes of the list in list order.
func (list *MasternodeList) ValidEntries() []*MasternodeEntry {
	entries := make([]*MasternodeEntry, 0, len(list.entries))
	for _, entry := range list.entries {
		if entry.IsValidAtHeight(list.height) {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Quorum returns the quorum of the given type and hash.
func (list *MasternodeList) Quorum(llmqType wire.LLMQType, quorumHash *chainhash.Hash) (*QuorumEntry, bool) {
	quorum, ok := list.quorums[llmqType][*quorumHash]
	return quorum, ok
}

// QuorumsOfType returns the quorums of the given type, ordered by quorum hash.
func (list *MasternodeList) QuorumsOfType(llmqType wire.LLMQType) []*QuorumEntry {
	quorumsOfType := list.quorums[llmqType]
	quorums := make([]*QuorumEntry, 0, len(quorumsOfType))
	for _, quorum := range quorumsOfType {
		quorums = append(quorums, quorum)
	}
	sortQuorums(quorums)
	return quorums
}

// Quorums returns all the quorums of the list, ordered by type then hash.
func (list *MasternodeList) Quorums() []*QuorumEntry {
	quorums := make([]*QuorumEntry, 0, list.QuorumsCount())
	for _, quorumsOfType := range list.quorums {
		for _, quorum := range quorumsOfType {
			quorums = append(quorums, quorum)
		}
	}
	sortQuorums(quorums)
	return quorums
}

func sortQuorums(quorums []*QuorumEntry) {
	sort.Slice(quorums, func(i, j int) bool {
		return quorums[i].Key().Less(quorums[j].Key())
	})
}

// QuorumsCount returns the number of quorums in the list.
func (list *MasternodeList) QuorumsCount() int {
	count := 0
	for _, quorumsOfType := range list.quorums {
		count += len(quorumsOfType)
	}
	return count
}

// ValidQuorumsCount returns the number of verified quorums in the list.
func (list *MasternodeList) ValidQuorumsCount() int {
	count := 0
	for _, quorumsOfType := range list.quorums {
		for _, quorum := range quorumsOfType {
			if quorum.IsVerified() {
				count++
			}
		}
	}
	return count
}

func (list *MasternodeList) hasUnverified(rotated bool) bool {
	for _, quorumsOfType := range list.quorums {
		for _, quorum := range quorumsOfType {
			if quorum.IsRotated() == rotated && quorum.Status == StatusUnverified {
				return true
			}
		}
	}
	return false
}

// HasUnverifiedRotatedQuorums returns whether a rotated quorum of the list
// still awaits verification.
func (list *MasternodeList) HasUnverifiedRotatedQuorums() bool {
	return list.hasUnverified(true)
}

// HasUnverifiedNonRotatedQuorums returns whether a non-rotated quorum of the
// list still awaits verification.
func (list *MasternodeList) HasUnverifiedNonRotatedQuorums() bool {
	return list.hasUnverified(false)
}

// MasternodeMerkleRoot returns the masternode merkle root recorded for the
// list, if any.
func (list *MasternodeList) MasternodeMerkleRoot() (*chainhash.Hash, bool) {
	return list.masternodeMerkleRoot, list.masternodeMerkleRoot != nil
}

// QuorumMerkleRoot returns the quorum merkle root recorded for the list, if
// any.
func (list *MasternodeList) QuorumMerkleRoot() (*chainhash.Hash, bool) {
	return list.quorumMerkleRoot, list.quorumMerkleRoot != nil
}

// WithMerkleRoots returns a copy of the list recording the given roots. A nil
// root is left unrecorded.
func (list *MasternodeList) WithMerkleRoots(masternodeMerkleRoot, quorumMerkleRoot *chainhash.Hash) *MasternodeList {
	clone := list.clone()
	clone.masternodeMerkleRoot = nil
	clone.quorumMerkleRoot = nil
	if masternodeMerkleRoot != nil {
		root := *masternodeMerkleRoot
		clone.masternodeMerkleRoot = &root
	}
	if quorumMerkleRoot != nil {
		root := *quorumMerkleRoot
		clone.quorumMerkleRoot = &root
	}
	return clone
}

// WithQuorums returns a copy of the list in which the given quorums replace
// the quorums of the same identity. Quorums unknown to the list are rejected.
func (list *MasternodeList) WithQuorums(quorums ...*QuorumEntry) (*MasternodeList, error) {
	clone := list.clone()
	clone.quorums = make(map[wire.LLMQType]map[chainhash.Hash]*QuorumEntry, len(list.quorums))
	for llmqType, quorumsOfType := range list.quorums {
		clone.quorums[llmqType] = quorumsOfType
	}

	copied := make(map[wire.LLMQType]bool)
	for _, quorum := range quorums {
		quorumsOfType, ok := clone.quorums[quorum.LLMQType]
		if !ok {
			return nil, errors.Errorf("%s is not part of the list at %s", quorum.Key(), list.BlockHash())
		}
		if _, ok := quorumsOfType[quorum.QuorumHash]; !ok {
			return nil, errors.Errorf("%s is not part of the list at %s", quorum.Key(), list.BlockHash())
		}
		if !copied[quorum.LLMQType] {
			replacement := make(map[chainhash.Hash]*QuorumEntry, len(quorumsOfType))
			for hash, existing := range quorumsOfType {
				replacement[hash] = existing
			}
			clone.quorums[quorum.LLMQType] = replacement
			quorumsOfType = replacement
			copied[quorum.LLMQType] = true
		}
		quorumsOfType[quorum.QuorumHash] = quorum
	}
	return clone, nil
}

// ListComparison holds the differences between two masternode lists.
type ListComparison struct {
	Added    []*MasternodeEntry
	Removed  []*MasternodeEntry
	Modified []*MasternodeEntry
}

// Compare returns the masternodes added, removed and modified between other
// and the receiver. Modified entries are taken from the receiver.
func (list *MasternodeList) Compare(other *MasternodeList) *ListComparison {
	comparison := &ListComparison{}
	for _, entry := range list.entries {
		otherEntry, ok := other.entriesByHash[entry.ProRegTxHash]
		if !ok {
			comparison.Added = append(comparison.Added, entry)
			continue
		}
		if !entry.IsEqual(otherEntry) {
			comparison.Modified = append(comparison.Modified, entry)
		}
	}
	for _, otherEntry := range other.entries {
		if _, ok := list.entriesByHash[otherEntry.ProRegTxHash]; !ok {
			comparison.Removed = append(comparison.Removed, otherEntry)
		}
	}
	return comparison
}

func (list *MasternodeList) String() string {
	return fmt.Sprintf("masternode list at %s (height %d, %d masternodes, %d quorums)",
		list.blockHash, list.height, len(list.entries), list.QuorumsCount())
}
