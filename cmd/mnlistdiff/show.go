package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dashevo/dashspv/domain/chaincfg"
	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/infrastructure/config"
	"github.com/dashevo/dashspv/util/chainhash"
	"github.com/pkg/errors"
)

func show(cfg *config.Config, conf *showConfig) error {
	blockHash, err := chainhash.NewHashFromStr(conf.BlockHash)
	if err != nil {
		return errors.Wrapf(err, "invalid block hash %s", conf.BlockHash)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	list, ok, err := store.MasternodeList(blockHash)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("no masternode list is stored at %s", blockHash)
	}
	printList(os.Stdout, cfg.NetParams(), list, conf.Entries)
	return nil
}

func printList(w io.Writer, params *chaincfg.Params, list *model.MasternodeList, withEntries bool) {
	fmt.Fprintln(w, list)
	if root, ok := list.MasternodeMerkleRoot(); ok {
		fmt.Fprintf(w, "masternode root: %s\n", root)
	}
	if root, ok := list.QuorumMerkleRoot(); ok {
		fmt.Fprintf(w, "quorum root:     %s\n", root)
	}
	fmt.Fprintf(w, "valid masternodes: %d of %d\n", len(list.ValidEntries()), list.Len())
	fmt.Fprintf(w, "valid quorums:     %d of %d\n", list.ValidQuorumsCount(), list.QuorumsCount())
	if !withEntries {
		return
	}

	for _, entry := range list.Entries() {
		fmt.Fprintf(w, "%s %s valid=%t voting=%s operator=%s\n", entry.ProRegTxHash, entry.Host(),
			entry.IsValid, entry.VotingAddress(params), entry.OperatorAddress(params))
	}
	for _, quorum := range list.Quorums() {
		fmt.Fprintf(w, "%s signers=%d valid members=%d\n", quorum, quorum.SignersCount(), quorum.ValidMembersCount())
	}
}
