package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dashevo/dashspv/domain/masternode/model"
	"github.com/dashevo/dashspv/domain/masternode/processes/diffdecoder"
	"github.com/dashevo/dashspv/infrastructure/config"
)

func decode(cfg *config.Config, conf *decodeConfig) error {
	decoder := diffdecoder.New()
	protocolVersion := cfg.NetParams().ProtocolVersion
	for _, path := range conf.Files {
		payload, err := readPayload(path, conf.Hex)
		if err != nil {
			return err
		}
		if conf.QRInfo {
			qrInfo, err := decoder.DecodeQRInfo(payload, protocolVersion)
			if err != nil {
				return err
			}
			fmt.Printf("%s: qrinfo\n", path)
			printQRInfo(os.Stdout, qrInfo)
			continue
		}
		diff, err := decoder.Decode(payload, protocolVersion)
		if err != nil {
			return err
		}
		fmt.Printf("%s: mnlistdiff\n", path)
		printDiff(os.Stdout, "", diff)
	}
	return nil
}

func printDiff(w io.Writer, indent string, diff *model.DiffMessage) {
	fmt.Fprintf(w, "%sbase block:          %s\n", indent, diff.BaseBlockHash)
	fmt.Fprintf(w, "%sblock:               %s\n", indent, diff.BlockHash)
	if diff.CoinbasePayload != nil {
		fmt.Fprintf(w, "%scoinbase height:     %d\n", indent, diff.CoinbasePayload.Height)
		fmt.Fprintf(w, "%smasternode root:     %s\n", indent, diff.CoinbasePayload.MerkleRootMNList)
		fmt.Fprintf(w, "%squorum root:         %s\n", indent, diff.CoinbasePayload.MerkleRootQuorums)
	}
	fmt.Fprintf(w, "%stransactions:        %d\n", indent, diff.TotalTransactions)
	fmt.Fprintf(w, "%sdeleted masternodes: %d\n", indent, len(diff.DeletedMasternodes))
	for _, proRegTxHash := range diff.DeletedMasternodes {
		fmt.Fprintf(w, "%s  - %s\n", indent, proRegTxHash)
	}
	fmt.Fprintf(w, "%sadded or modified:   %d\n", indent, len(diff.AddedOrModified))
	for _, entry := range diff.AddedOrModified {
		fmt.Fprintf(w, "%s  + %s valid=%t\n", indent, entry.ProRegTxHash, entry.IsValid)
	}
	fmt.Fprintf(w, "%sdeleted quorums:     %d\n", indent, len(diff.DeletedQuorums))
	for _, key := range diff.DeletedQuorums {
		fmt.Fprintf(w, "%s  - %s\n", indent, key)
	}
	fmt.Fprintf(w, "%snew quorums:         %d\n", indent, len(diff.NewQuorums))
	for _, quorum := range diff.NewQuorums {
		fmt.Fprintf(w, "%s  + %s\n", indent, quorum)
	}
}

func printQRInfo(w io.Writer, qrInfo *model.QRInfoMessage) {
	diffs := []struct {
		name string
		diff *model.DiffMessage
	}{
		{"tip", qrInfo.DiffTip},
		{"h", qrInfo.DiffAtH},
		{"h-c", qrInfo.DiffAtHMinusC},
		{"h-2c", qrInfo.DiffAtHMinus2C},
		{"h-3c", qrInfo.DiffAtHMinus3C},
		{"h-4c", qrInfo.DiffAtHMinus4C},
	}
	for _, named := range diffs {
		if named.diff == nil {
			continue
		}
		fmt.Fprintf(w, "  diff at %s:\n", named.name)
		printDiff(w, "    ", named.diff)
	}
	fmt.Fprintf(w, "  last commitments per index: %d\n", len(qrInfo.LastCommitmentPerIndex))
	for _, quorum := range qrInfo.LastCommitmentPerIndex {
		fmt.Fprintf(w, "    %s\n", quorum)
	}
	fmt.Fprintf(w, "  extra diffs: %d\n", len(qrInfo.DiffList))
	for i, diff := range qrInfo.DiffList {
		fmt.Fprintf(w, "  extra diff %d:\n", i)
		printDiff(w, "    ", diff)
	}
}
