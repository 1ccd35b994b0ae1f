package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/infrastructure/config"
)

func prune(cfg *config.Config, conf *pruneConfig) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := store.DeleteBelowHeight(conf.Height)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted %d masternode lists below height %d\n", deleted, conf.Height)
	return nil
}

// pruneBehind deletes the stored lists more than cfg.KeepLists blocks below
// tipHeight. A zero KeepLists keeps every list.
func pruneBehind(w io.Writer, cfg *config.Config, store model.MasternodeListStore, tipHeight uint32) error {
	if cfg.KeepLists == 0 || tipHeight <= cfg.KeepLists {
		return nil
	}
	height := tipHeight - cfg.KeepLists
	deleted, err := store.DeleteBelowHeight(height)
	if err != nil {
		return err
	}
	if deleted > 0 {
		fmt.Fprintf(w, "Deleted %d masternode lists below height %d\n", deleted, height)
	}
	return nil
}
