package listmerger

import (
	"testing"

	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/domain/masternode/testutils"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/pkg/errors"
)

var testHeights = map[chainhash.Hash]uint32{
	*testutils.Hash(10): 100,
	*testutils.Hash(11): 101,
	*testutils.Hash(12): 102,
}

func newTestMerger() model.ListMerger {
	return New(testutils.HeightLookup(testHeights))
}

// entryHashes returns the entry hashes of list by registration hash.
func entryHashes(list *model.MasternodeList) map[chainhash.Hash]chainhash.Hash {
	hashes := make(map[chainhash.Hash]chainhash.Hash, list.Len())
	for _, entry := range list.Entries() {
		hashes[entry.ProRegTxHash] = *entry.EntryHash()
	}
	return hashes
}

func quorumKeys(list *model.MasternodeList) map[model.QuorumKey]chainhash.Hash {
	keys := make(map[model.QuorumKey]chainhash.Hash, list.QuorumsCount())
	for _, quorum := range list.Quorums() {
		keys[quorum.Key()] = quorum.EntryHash
	}
	return keys
}

func assertSameLists(t *testing.T, got, want *model.MasternodeList) {
	t.Helper()
	if !got.BlockHash().IsEqual(want.BlockHash()) || got.Height() != want.Height() {
		t.Fatalf("got the list at %s (%d), want the list at %s (%d)",
			got.BlockHash(), got.Height(), want.BlockHash(), want.Height())
	}
	gotEntries, wantEntries := entryHashes(got), entryHashes(want)
	if len(gotEntries) != len(wantEntries) {
		t.Fatalf("got %d masternodes, want %d", len(gotEntries), len(wantEntries))
	}
	for proRegTxHash, entryHash := range wantEntries {
		if gotEntries[proRegTxHash] != entryHash {
			t.Fatalf("masternode %s: got entry hash %s, want %s", proRegTxHash, gotEntries[proRegTxHash], entryHash)
		}
	}
	gotQuorums, wantQuorums := quorumKeys(got), quorumKeys(want)
	if len(gotQuorums) != len(wantQuorums) {
		t.Fatalf("got %d quorums, want %d", len(gotQuorums), len(wantQuorums))
	}
	for key, entryHash := range wantQuorums {
		if gotQuorums[key] != entryHash {
			t.Fatalf("%s: got entry hash %s, want %s", key, gotQuorums[key], entryHash)
		}
	}
}

func firstList(t *testing.T, merger model.ListMerger) *model.MasternodeList {
	diff := testutils.Diff(&chainhash.ZeroHash, testutils.Hash(10), 100, nil,
		[]*wire.SMLEntry{testutils.SMLEntry(1), testutils.SMLEntry(2), testutils.SMLEntry(3)})
	diff.NewQuorums = []*model.QuorumEntry{
		model.NewQuorumEntry(testutils.Commitment(wire.LLMQType50_60, 20, 50)),
		model.NewQuorumEntry(testutils.Commitment(wire.LLMQType400_60, 21, 400)),
	}
	list, err := merger.Merge(nil, diff)
	if err != nil {
		t.Fatalf("Merge: %s", err)
	}
	return list
}

func TestMergeFromEmpty(t *testing.T) {
	list := firstList(t, newTestMerger())
	if list.Len() != 3 || list.QuorumsCount() != 2 {
		t.Fatalf("got %d masternodes and %d quorums, want 3 and 2", list.Len(), list.QuorumsCount())
	}
	if list.Height() != 100 || !list.BlockHash().IsEqual(testutils.Hash(10)) {
		t.Fatalf("got the list at %s (%d), want the list at %s (100)", list.BlockHash(), list.Height(), testutils.Hash(10))
	}
	for _, entry := range list.Entries() {
		if entry.UpdateHeight != 100 {
			t.Errorf("masternode %s: got update height %d, want 100", entry.ProRegTxHash, entry.UpdateHeight)
		}
	}
}

func TestMergeIdentity(t *testing.T) {
	merger := newTestMerger()
	list := firstList(t, merger)
	empty := testutils.Diff(testutils.Hash(10), testutils.Hash(10), 100, nil, nil)

	merged, err := merger.Merge(list, empty)
	if err != nil {
		t.Fatalf("Merge: %s", err)
	}
	assertSameLists(t, merged, list)
}

func TestMergeComposability(t *testing.T) {
	merger := newTestMerger()
	list := firstList(t, merger)

	modified := testutils.SMLEntry(2)
	modified.IsValid = false
	first := testutils.Diff(testutils.Hash(10), testutils.Hash(11), 101,
		[]*chainhash.Hash{testutils.Hash(1)}, []*wire.SMLEntry{modified, testutils.SMLEntry(4)})
	first.DeletedQuorums = []model.QuorumKey{{LLMQType: wire.LLMQType50_60, QuorumHash: *testutils.Hash(20)}}

	second := testutils.Diff(testutils.Hash(11), testutils.Hash(12), 102,
		[]*chainhash.Hash{testutils.Hash(4)}, []*wire.SMLEntry{testutils.SMLEntry(5)})
	second.NewQuorums = []*model.QuorumEntry{model.NewQuorumEntry(testutils.Commitment(wire.LLMQType50_60, 22, 50))}

	// The composition of both diffs.
	composed := testutils.Diff(testutils.Hash(10), testutils.Hash(12), 102,
		[]*chainhash.Hash{testutils.Hash(1)}, []*wire.SMLEntry{modified, testutils.SMLEntry(5)})
	composed.DeletedQuorums = first.DeletedQuorums
	composed.NewQuorums = second.NewQuorums

	intermediate, err := merger.Merge(list, first)
	if err != nil {
		t.Fatalf("Merge first: %s", err)
	}
	stepwise, err := merger.Merge(intermediate, second)
	if err != nil {
		t.Fatalf("Merge second: %s", err)
	}
	direct, err := merger.Merge(list, composed)
	if err != nil {
		t.Fatalf("Merge composed: %s", err)
	}
	assertSameLists(t, stepwise, direct)
}

func TestMergeHistory(t *testing.T) {
	merger := newTestMerger()
	list := firstList(t, merger)
	before, _ := list.Entry(testutils.Hash(2))

	modified := testutils.SMLEntry(2)
	modified.IsValid = false
	diff := testutils.Diff(testutils.Hash(10), testutils.Hash(11), 101, nil, []*wire.SMLEntry{modified})
	merged, err := merger.Merge(list, diff)
	if err != nil {
		t.Fatalf("Merge: %s", err)
	}

	after, ok := merged.Entry(testutils.Hash(2))
	if !ok {
		t.Fatalf("masternode %s is missing from the merged list", testutils.Hash(2))
	}
	key := model.BlockKey{Hash: *testutils.Hash(10), Height: 100}
	if valid, ok := after.PreviousValidity[key]; !ok || !valid {
		t.Errorf("PreviousValidity: got %v, want the previous validity recorded at %v", after.PreviousValidity, key)
	}
	if hash, ok := after.PreviousEntryHashes[key]; !ok || !hash.IsEqual(before.EntryHash()) {
		t.Errorf("PreviousEntryHashes: got %v, want %s recorded at %v", after.PreviousEntryHashes, before.EntryHash(), key)
	}
	if after.UpdateHeight != 101 {
		t.Errorf("UpdateHeight: got %d, want 101", after.UpdateHeight)
	}
	if len(merged.ValidEntries()) != 2 {
		t.Errorf("ValidEntries: got %d entries, want 2", len(merged.ValidEntries()))
	}

	// The base list must be left untouched.
	if stillBefore, _ := list.Entry(testutils.Hash(2)); !stillBefore.IsValid {
		t.Errorf("Merge modified its base list")
	}
}

func TestMergeErrors(t *testing.T) {
	merger := newTestMerger()
	list := firstList(t, merger)

	tests := []struct {
		name    string
		diff    *model.DiffMessage
		wantErr error
	}{
		{
			name: "unknown deleted masternode",
			diff: testutils.Diff(testutils.Hash(10), testutils.Hash(11), 101,
				[]*chainhash.Hash{testutils.Hash(9)}, nil),
			wantErr: ruleerrors.ErrInconsistentDiff,
		},
		{
			name: "duplicate masternode",
			diff: testutils.Diff(testutils.Hash(10), testutils.Hash(11), 101, nil,
				[]*wire.SMLEntry{testutils.SMLEntry(7), testutils.SMLEntry(7)}),
			wantErr: ruleerrors.ErrInconsistentDiff,
		},
		{
			name: "wrong base",
			diff: testutils.Diff(testutils.Hash(11), testutils.Hash(12), 102,
				nil, []*wire.SMLEntry{testutils.SMLEntry(7)}),
			wantErr: ruleerrors.ErrInconsistentDiff,
		},
		{
			name:    "unknown height",
			diff:    testutils.Diff(testutils.Hash(10), testutils.Hash(13), 103, nil, nil),
			wantErr: ruleerrors.ErrUnknownBlockHeight,
		},
		{
			name:    "coinbase height mismatch",
			diff:    testutils.Diff(testutils.Hash(10), testutils.Hash(11), 150, nil, nil),
			wantErr: ruleerrors.ErrInvalidCoinbaseProof,
		},
	}

	unknownQuorum := testutils.Diff(testutils.Hash(10), testutils.Hash(11), 101, nil, nil)
	unknownQuorum.DeletedQuorums = []model.QuorumKey{{LLMQType: wire.LLMQType50_60, QuorumHash: *testutils.Hash(99)}}
	tests = append(tests, struct {
		name    string
		diff    *model.DiffMessage
		wantErr error
	}{"unknown deleted quorum", unknownQuorum, ruleerrors.ErrInconsistentDiff})

	existingQuorum := testutils.Diff(testutils.Hash(10), testutils.Hash(11), 101, nil, nil)
	existingQuorum.NewQuorums = []*model.QuorumEntry{
		model.NewQuorumEntry(testutils.Commitment(wire.LLMQType50_60, 20, 50)),
	}
	tests = append(tests, struct {
		name    string
		diff    *model.DiffMessage
		wantErr error
	}{"already known quorum", existingQuorum, ruleerrors.ErrInconsistentDiff})

	for _, test := range tests {
		_, err := merger.Merge(list, test.diff)
		if !errors.Is(err, test.wantErr) {
			t.Errorf("%s: got error %v, want %v", test.name, err, test.wantErr)
		}
	}
}
