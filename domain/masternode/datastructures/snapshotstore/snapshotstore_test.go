package snapshotstore

import (
	"io/ioutil"
	"os"
	"reflect"
	"testing"

	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/testutils"
	"github.com/dashevo/dashspv/infrastructure/db/database/ldb"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
	"github.com/davecgh/go-spew/spew"
)

func prepareStoreForTest(t *testing.T, testName string) model.MasternodeListStore {
	path, err := ioutil.TempDir("", testName)
	if err != nil {
		t.Fatalf("%s: TempDir unexpectedly failed: %s", testName, err)
	}
	db, err := ldb.NewLevelDB(path, 8)
	if err != nil {
		t.Fatalf("%s: NewLevelDB unexpectedly failed: %s", testName, err)
	}
	store, err := New(db)
	if err != nil {
		t.Fatalf("%s: New unexpectedly failed: %s", testName, err)
	}
	t.Cleanup(func() {
		err := store.Close()
		if err != nil {
			t.Errorf("%s: Close unexpectedly failed: %s", testName, err)
		}
		os.RemoveAll(path)
	})
	return store
}

func testList(t *testing.T, seed byte, height uint32) *model.MasternodeList {
	first := model.NewMasternodeEntry(testutils.SMLEntry(seed), height-10)

	changed := testutils.SMLEntry(seed)
	changed.IsValid = false
	changed.OperatorPublicKey[0] ^= 0xff
	updated := first.WithUpdate(changed, model.BlockKey{Hash: *testutils.Hash(seed + 1), Height: height - 6}, height-5)

	unconfirmed := testutils.SMLEntry(seed + 2)
	unconfirmed.ConfirmedHash = chainhash.Hash{}
	entries := []*model.MasternodeEntry{
		updated,
		model.NewMasternodeEntry(unconfirmed, height),
	}

	quorums := []*model.QuorumEntry{
		model.NewQuorumEntry(testutils.Commitment(wire.LLMQTypeTest, seed+3, 3)).
			WithStatus(model.StatusVerified).WithSaved(true),
		model.NewQuorumEntry(testutils.Commitment(wire.LLMQTypeTest, seed+4, 3)),
	}

	list, err := model.NewMasternodeList(testutils.Hash(seed), height, entries, quorums)
	if err != nil {
		t.Fatalf("NewMasternodeList: %s", err)
	}
	return list.WithMerkleRoots(testutils.Hash(seed+5), nil)
}

func TestStoreRoundTrip(t *testing.T) {
	store := prepareStoreForTest(t, "TestStoreRoundTrip")
	list := testList(t, 1, 100)

	err := store.Store(list)
	if err != nil {
		t.Fatalf("Store: %s", err)
	}
	has, err := store.Has(list.BlockHash())
	if err != nil {
		t.Fatalf("Has: %s", err)
	}
	if !has {
		t.Fatalf("Has: expected the stored list to be found")
	}

	got, found, err := store.MasternodeList(list.BlockHash())
	if err != nil {
		t.Fatalf("MasternodeList: %s", err)
	}
	if !found {
		t.Fatalf("MasternodeList: expected the stored list to be found")
	}
	if !got.BlockHash().IsEqual(list.BlockHash()) || got.Height() != list.Height() {
		t.Fatalf("got list %s at %d, want %s at %d",
			got.BlockHash(), got.Height(), list.BlockHash(), list.Height())
	}
	if !reflect.DeepEqual(got.Entries(), list.Entries()) {
		t.Fatalf("entries differ. got: %s, want: %s",
			spew.Sdump(got.Entries()), spew.Sdump(list.Entries()))
	}

	wantQuorums := list.Quorums()
	gotQuorums := got.Quorums()
	if len(gotQuorums) != len(wantQuorums) {
		t.Fatalf("got %d quorums, want %d", len(gotQuorums), len(wantQuorums))
	}
	for i, want := range wantQuorums {
		if gotQuorums[i].EntryHash != want.EntryHash {
			t.Errorf("quorum %d: got entry hash %s, want %s", i, gotQuorums[i].EntryHash, want.EntryHash)
		}
		if gotQuorums[i].Status != want.Status || gotQuorums[i].Saved != want.Saved {
			t.Errorf("quorum %d: got %s (saved: %t), want %s (saved: %t)", i,
				gotQuorums[i].Status, gotQuorums[i].Saved, want.Status, want.Saved)
		}
	}

	wantRoot, _ := list.MasternodeMerkleRoot()
	gotRoot, ok := got.MasternodeMerkleRoot()
	if !ok || !gotRoot.IsEqual(wantRoot) {
		t.Fatalf("got masternode merkle root %s, want %s", gotRoot, wantRoot)
	}
	if _, ok := got.QuorumMerkleRoot(); ok {
		t.Fatalf("unexpected quorum merkle root on the restored list")
	}
}

func TestMissingList(t *testing.T) {
	store := prepareStoreForTest(t, "TestMissingList")

	list, found, err := store.MasternodeList(testutils.Hash(1))
	if err != nil {
		t.Fatalf("MasternodeList: %s", err)
	}
	if found || list != nil {
		t.Fatalf("MasternodeList: expected no list, got %s", list)
	}
	err = store.Delete(testutils.Hash(1))
	if err != nil {
		t.Fatalf("Delete of a missing list: %s", err)
	}
}

func TestDelete(t *testing.T) {
	store := prepareStoreForTest(t, "TestDelete")
	list := testList(t, 1, 100)
	err := store.Store(list)
	if err != nil {
		t.Fatalf("Store: %s", err)
	}

	err = store.Delete(list.BlockHash())
	if err != nil {
		t.Fatalf("Delete: %s", err)
	}
	has, err := store.Has(list.BlockHash())
	if err != nil {
		t.Fatalf("Has: %s", err)
	}
	if has {
		t.Fatalf("Has: expected the deleted list to be gone")
	}
	deleted, err := store.DeleteBelowHeight(1000)
	if err != nil {
		t.Fatalf("DeleteBelowHeight: %s", err)
	}
	if deleted != 0 {
		t.Fatalf("DeleteBelowHeight: expected the height index to be empty, deleted %d", deleted)
	}
}

func TestDeleteBelowHeight(t *testing.T) {
	store := prepareStoreForTest(t, "TestDeleteBelowHeight")

	heights := map[byte]uint32{10: 100, 20: 200, 30: 255, 40: 256, 50: 70000}
	for seed, height := range heights {
		err := store.Store(testList(t, seed, height))
		if err != nil {
			t.Fatalf("Store: %s", err)
		}
	}

	deleted, err := store.DeleteBelowHeight(256)
	if err != nil {
		t.Fatalf("DeleteBelowHeight: %s", err)
	}
	if deleted != 3 {
		t.Fatalf("DeleteBelowHeight: deleted %d lists, want 3", deleted)
	}
	for seed, height := range heights {
		has, err := store.Has(testutils.Hash(seed))
		if err != nil {
			t.Fatalf("Has: %s", err)
		}
		if has != (height >= 256) {
			t.Errorf("list at height %d: Has returned %t", height, has)
		}
	}
}
