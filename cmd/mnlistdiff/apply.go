package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dashevo/dashspv/domain/masternode/datastructures/snapshotstore"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/processor"
	"github.com/dashevo/dashspv/domain/masternode/retrievalcache"
	"github.com/dashevo/dashspv/domain/masternode/ruleerrors"
	"github.com/dashevo/dashspv/infrastructure/config"
	"github.com/dashevo/dashspv/infrastructure/crypto/bls"
	"github.com/dashevo/dashspv/infrastructure/db/database/ldb"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/pkg/errors"
)

const applyPeerID = "file"

// openStore opens the masternode list store in the data directory of cfg.
func openStore(cfg *config.Config) (model.MasternodeListStore, error) {
	db, err := ldb.NewLevelDB(cfg.DataDir, cfg.DBCacheSizeMiB)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening the database at %s", cfg.DataDir)
	}
	store, err := snapshotstore.New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func apply(cfg *config.Config, conf *applyConfig) error {
	c, err := loadChainFile(conf.ChainFile)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return applyFiles(os.Stdout, cfg, conf, c, store)
}

func applyFiles(w io.Writer, cfg *config.Config, conf *applyConfig, c *chain,
	store model.MasternodeListStore) error {

	p := processor.New(&processor.Config{
		Params:            cfg.NetParams(),
		QueueSize:         cfg.QueueSize,
		MaxParkedDiffs:    cfg.MaxParkedDiffs,
		BlockHeightLookup: c,
		MerkleRootLookup:  c,
		SignatureVerifier: bls.NewVerifier(cfg.LegacyPolicy()),
		Store:             store,
		Cache:             retrievalcache.New(cfg.RetrievalCacheConfig(), store),
	})

	accepted := p.Subscribe()
	var latest *model.MasternodeList
	collected := make(chan struct{})
	spawn("applyFiles-collect", func() {
		defer close(collected)
		for list := range accepted {
			if latest == nil || list.Height() > latest.Height() {
				latest = list
			}
		}
	})

	p.Start()
	err := processFiles(w, p, conf)
	p.Stop()
	<-collected
	if err != nil {
		return err
	}

	if latest == nil {
		fmt.Fprintln(w, "No masternode list was accepted")
		return nil
	}
	fmt.Fprintf(w, "Latest accepted: %s\n", latest)
	return pruneBehind(w, cfg, store, latest.Height())
}

func processFiles(w io.Writer, p *processor.Processor, conf *applyConfig) error {
	for _, path := range conf.Files {
		payload, err := readPayload(path, conf.Hex)
		if err != nil {
			return err
		}

		if conf.QRInfo {
			result, err := p.ProcessQRInfo(context.Background(), payload, applyPeerID)
			if result != nil {
				for _, diffResult := range result.Results {
					printDiffResult(w, path, diffResult)
				}
				for _, quorum := range result.LastCommitmentPerIndex {
					fmt.Fprintf(w, "%s: last commitment %s\n", path, quorum)
				}
			}
			err = reportProcessingError(w, path, err)
			if err != nil {
				return err
			}
			continue
		}

		result, err := p.ProcessDiff(context.Background(), payload, applyPeerID)
		if result != nil {
			printDiffResult(w, path, result)
		}
		err = reportProcessingError(w, path, err)
		if err != nil {
			return err
		}
	}
	return nil
}

// reportProcessingError prints the outcome of a payload that wasn't
// accepted. Only errors that aren't about the payload itself are returned.
func reportProcessingError(w io.Writer, path string, err error) error {
	if err == nil {
		return nil
	}
	if needed, ok := ruleerrors.MissingDependencies(err); ok {
		fmt.Fprintf(w, "%s: waiting for the masternode lists at %s\n", path,
			chainhash.JoinHashesStrings(needed, ", "))
		return nil
	}
	var ruleError ruleerrors.RuleError
	if errors.As(err, &ruleError) {
		fmt.Fprintf(w, "%s: rejected: %s\n", path, err)
		return nil
	}
	return errors.Wrapf(err, "error processing %s", path)
}

func printDiffResult(w io.Writer, path string, result *model.DiffResult) {
	fmt.Fprintf(w, "%s: %s\n", path, result.MasternodeList)
	fmt.Fprintf(w, "  valid:                %t\n", result.IsValid())
	fmt.Fprintf(w, "  coinbase found/valid: %t/%t\n", result.FoundCoinbase, result.ValidCoinbase)
	fmt.Fprintf(w, "  masternode root:      %t\n", result.RootMNListValid)
	fmt.Fprintf(w, "  quorum root:          %t\n", result.RootQuorumListValid)
	fmt.Fprintf(w, "  quorums:              %t\n", result.ValidQuorums)
	fmt.Fprintf(w, "  added masternodes:    %d\n", len(result.AddedMasternodes))
	fmt.Fprintf(w, "  modified masternodes: %d\n", len(result.ModifiedMasternodes))
	fmt.Fprintf(w, "  added quorums:        %d\n", len(result.AddedQuorums))
	if len(result.NeededMissingMasternodeLists) > 0 {
		fmt.Fprintf(w, "  needed lists:         %s\n",
			chainhash.JoinHashesStrings(result.NeededMissingMasternodeLists, ", "))
	}
}
