package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/retrievalcache"
	"github.com/dashevo/dashspv/infrastructure/crypto/bls"
)

func prepareDirForTest(t *testing.T, testName string) string {
	dir, err := ioutil.TempDir("", testName)
	if err != nil {
		t.Fatalf("%s: TempDir unexpectedly failed: %s", testName, err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := prepareDirForTest(t, "TestLoadConfigDefaults")

	cfg, remainingArgs, err := LoadConfig([]string{
		"--configfile", filepath.Join(dir, "missing.conf"),
		"--datadir", dir,
		"extra",
	})
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if len(remainingArgs) != 1 || remainingArgs[0] != "extra" {
		t.Fatalf("unexpected remaining arguments %v", remainingArgs)
	}
	if cfg.NetParams() != &chaincfg.MainnetParams {
		t.Fatalf("expected mainnet by default, got %s", cfg.NetParams().Name)
	}
	if cfg.DataDir != filepath.Join(dir, "mainnet") {
		t.Fatalf("expected the data directory to be namespaced, got %s", cfg.DataDir)
	}
	if cfg.RequestTimeout != 20*time.Second || cfg.BanThreshold != defaultBanThreshold {
		t.Fatalf("unexpected defaults: %+v", cfg.Flags)
	}
	if cfg.LegacyPolicy() != bls.LegacySkip {
		t.Fatalf("expected quorums of legacy signatures to be skipped by default")
	}
	if cfg.RetrievalCacheConfig().MaxRetrievals != retrievalcache.DefaultMaxRetrievals {
		t.Fatalf("expected %d tracked retrievals by default, got %d", retrievalcache.DefaultMaxRetrievals,
			cfg.RetrievalCacheConfig().MaxRetrievals)
	}
}

func TestLoadConfigPassesCommandArgs(t *testing.T) {
	dir := prepareDirForTest(t, "TestLoadConfigPassesCommandArgs")

	cfg, remainingArgs, err := LoadConfig([]string{
		"--configfile", filepath.Join(dir, "missing.conf"),
		"--regtest",
		"apply", "--file", "diff.bin", "--hex",
		"--datadir", dir,
	})
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	expected := []string{"apply", "--file", "diff.bin", "--hex"}
	if len(remainingArgs) != len(expected) {
		t.Fatalf("unexpected remaining arguments %v", remainingArgs)
	}
	for i := range expected {
		if remainingArgs[i] != expected[i] {
			t.Fatalf("unexpected remaining arguments %v", remainingArgs)
		}
	}
	if cfg.DataDir != filepath.Join(dir, "regtest") {
		t.Fatalf("expected global options after the command to apply, got %s", cfg.DataDir)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := prepareDirForTest(t, "TestLoadConfigFile")
	configFile := filepath.Join(dir, "dashspv.conf")
	contents := "[Application Options]\ntestnet=1\nmaxinflight=3\nbanthreshold=20\nlegacybls=reject\n"
	err := ioutil.WriteFile(configFile, []byte(contents), 0600)
	if err != nil {
		t.Fatalf("WriteFile: %s", err)
	}

	cfg, _, err := LoadConfig([]string{"--configfile", configFile, "--datadir", dir, "--banthreshold=50"})
	if err != nil {
		t.Fatalf("LoadConfig: %s", err)
	}
	if cfg.NetParams() != &chaincfg.TestnetParams {
		t.Fatalf("expected testnet from the config file, got %s", cfg.NetParams().Name)
	}
	if cfg.RetrievalCacheConfig().MaxInFlight != 3 {
		t.Fatalf("expected maxinflight from the config file, got %d", cfg.MaxInFlight)
	}
	if cfg.BanThreshold != 50 {
		t.Fatalf("expected the command line to take precedence, got ban threshold %d", cfg.BanThreshold)
	}
	if cfg.LegacyPolicy() != bls.LegacyReject {
		t.Fatalf("expected legacy signatures to be rejected")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := prepareDirForTest(t, "TestLoadConfigErrors")
	configFile := filepath.Join(dir, "missing.conf")

	tests := []struct {
		name string
		args []string
	}{
		{name: "multiple networks", args: []string{"--testnet", "--regtest"}},
		{name: "short timeout", args: []string{"--requesttimeout=10ms"}},
		{name: "zero in flight", args: []string{"--maxinflight=0"}},
		{name: "fewer retrievals than in flight", args: []string{"--maxinflight=8", "--maxretrievals=4"}},
		{name: "invalid log level", args: []string{"--loglevel=loud"}},
		{name: "invalid subsystem level", args: []string{"--loglevel=MNLS=loud"}},
		{name: "invalid legacy policy", args: []string{"--legacybls=maybe"}},
	}
	for _, test := range tests {
		args := append([]string{"--configfile", configFile, "--datadir", dir}, test.args...)
		_, _, err := LoadConfig(args)
		if err == nil {
			t.Errorf("%s: expected an error", test.name)
		}
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	dir := prepareDirForTest(t, "TestCreateDefaultConfigFile")
	configFile := filepath.Join(dir, "nested", "dashspv.conf")

	err := createDefaultConfigFile(configFile)
	if err != nil {
		t.Fatalf("createDefaultConfigFile: %s", err)
	}
	cfg, _, err := LoadConfig([]string{"--configfile", configFile, "--datadir", dir})
	if err != nil {
		t.Fatalf("LoadConfig with the default config file: %s", err)
	}
	if cfg.NetParams() != &chaincfg.MainnetParams {
		t.Fatalf("the default config file shouldn't select a network")
	}
}
