package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/processes/diffdecoder"
	"github.com/dashevo/dashspv/domain/masternode/processes/merkleverifier"
	"github.com/dashevo/dashspv/domain/masternode/testutils"
	"github.com/dashevo/dashspv/infrastructure/config"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/dashevo/dashspv/wire"
)

// prepareConfigForTest returns a regtest config whose data directory is
// inside a new temporary directory, along with that directory.
func prepareConfigForTest(t *testing.T, testName string) (*config.Config, string) {
	dir, err := ioutil.TempDir("", testName)
	if err != nil {
		t.Fatalf("%s: TempDir unexpectedly failed: %s", testName, err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := &config.Config{Flags: config.DefaultFlags()}
	cfg.ActiveNetParams = &chaincfg.RegressionNetParams
	cfg.DataDir = filepath.Join(dir, "data")
	return cfg, dir
}

// writeDiff writes a hex encoded diff from base to block holding the
// given entries, committed to by the right roots.
func writeDiff(t *testing.T, dir string, base, block *chainhash.Hash, height uint32,
	deleted []*chainhash.Hash, added []*wire.SMLEntry, listSeeds ...byte) string {

	masternodes := make([]*model.MasternodeEntry, len(listSeeds))
	for i, seed := range listSeeds {
		masternodes[i] = model.NewMasternodeEntry(testutils.SMLEntry(seed), height)
	}
	list, err := model.NewMasternodeList(block, height, masternodes, nil)
	if err != nil {
		t.Fatalf("NewMasternodeList: %s", err)
	}
	verifier := merkleverifier.New(&chaincfg.RegressionNetParams)
	diff := testutils.WithRoots(testutils.Diff(base, block, height, deleted, added), height,
		verifier.MasternodeMerkleRoot(list), verifier.QuorumMerkleRoot(list))

	payload, err := diffdecoder.Encode(diff, wire.ProtocolVersion)
	if err != nil {
		t.Fatalf("Encode: %s", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.hex", block))
	err = ioutil.WriteFile(path, []byte(hex.EncodeToString(payload)+"\n"), 0600)
	if err != nil {
		t.Fatalf("WriteFile: %s", err)
	}
	return path
}

func TestApplyFiles(t *testing.T) {
	cfg, dir := prepareConfigForTest(t, "TestApplyFiles")
	cfg.KeepLists = 1
	first, second, third := testutils.Hash(10), testutils.Hash(11), testutils.Hash(12)

	c, err := parseChain(strings.NewReader(fmt.Sprintf("%s 1000\n%s 1001\n%s 1002\n", first, second, third)))
	if err != nil {
		t.Fatalf("parseChain: %s", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore: %s", err)
	}
	defer store.Close()

	firstFile := writeDiff(t, dir, &chainhash.ZeroHash, first, 1000, nil,
		[]*wire.SMLEntry{testutils.SMLEntry(1), testutils.SMLEntry(2), testutils.SMLEntry(3)}, 1, 2, 3)
	secondFile := writeDiff(t, dir, first, second, 1001, []*chainhash.Hash{&testutils.SMLEntry(1).ProRegTxHash},
		nil, 2, 3)
	thirdFile := writeDiff(t, dir, second, third, 1002, nil,
		[]*wire.SMLEntry{testutils.SMLEntry(4)}, 2, 3, 4)

	conf := &applyConfig{
		payloadFlags: payloadFlags{Files: []string{firstFile, thirdFile, secondFile}, Hex: true},
	}
	var out bytes.Buffer
	err = applyFiles(&out, cfg, conf, c, store)
	if err != nil {
		t.Fatalf("applyFiles: %s", err)
	}

	if !strings.Contains(out.String(), "waiting for the masternode lists at "+second.String()) {
		t.Errorf("expected the third diff to wait for the second list, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Latest accepted: masternode list at "+third.String()) {
		t.Errorf("expected the list at %s to be the latest, got:\n%s", third, out.String())
	}

	for _, test := range []struct {
		blockHash *chainhash.Hash
		stored    bool
		len       int
	}{
		{blockHash: first, stored: false},
		{blockHash: second, stored: true, len: 2},
		{blockHash: third, stored: true, len: 3},
	} {
		list, ok, err := store.MasternodeList(test.blockHash)
		if err != nil {
			t.Fatalf("MasternodeList: %s", err)
		}
		if ok != test.stored {
			t.Errorf("list at %s: expected stored %t, got %t", test.blockHash, test.stored, ok)
			continue
		}
		if ok && list.Len() != test.len {
			t.Errorf("list at %s: expected %d masternodes, got %d", test.blockHash, test.len, list.Len())
		}
	}
}

func TestApplyFilesRejectsBadRoots(t *testing.T) {
	cfg, dir := prepareConfigForTest(t, "TestApplyFilesRejectsBadRoots")
	block := testutils.Hash(10)
	c, err := parseChain(strings.NewReader(fmt.Sprintf("%s 1000\n", block)))
	if err != nil {
		t.Fatalf("parseChain: %s", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore: %s", err)
	}
	defer store.Close()

	// The roots commit to a list without the third masternode.
	path := writeDiff(t, dir, &chainhash.ZeroHash, block, 1000, nil,
		[]*wire.SMLEntry{testutils.SMLEntry(1), testutils.SMLEntry(2), testutils.SMLEntry(3)}, 1, 2)

	var out bytes.Buffer
	err = applyFiles(&out, cfg, &applyConfig{payloadFlags: payloadFlags{Files: []string{path}, Hex: true}}, c, store)
	if err != nil {
		t.Fatalf("applyFiles: %s", err)
	}
	if !strings.Contains(out.String(), "rejected") || !strings.Contains(out.String(), "No masternode list was accepted") {
		t.Errorf("expected the diff to be rejected, got:\n%s", out.String())
	}
	if has, err := store.Has(block); err != nil || has {
		t.Errorf("a rejected list shouldn't be stored (has: %t, err: %v)", has, err)
	}
}
