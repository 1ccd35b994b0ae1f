package main

import (
	"github.com/dashevo/dashspv/infrastructure/config"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	decodeSubCmd = "decode"
	applySubCmd  = "apply"
	showSubCmd   = "show"
	pruneSubCmd  = "prune"
)

type payloadFlags struct {
	Files  []string `long:"file" short:"f" description:"A file holding an mnlistdiff or qrinfo payload. May be given more than once" required:"true"`
	Hex    bool     `long:"hex" description:"The files hold the payloads encoded in hex"`
	QRInfo bool     `long:"qrinfo" description:"The files hold qrinfo payloads rather than mnlistdiff payloads"`
}

type decodeConfig struct {
	payloadFlags
}

type applyConfig struct {
	payloadFlags
	ChainFile string `long:"chain" short:"c" description:"A file listing '<block hash> <height> [<merkle root>]' for every block the diffs refer to" required:"true"`
}

type showConfig struct {
	BlockHash string `long:"block" description:"The hash of the block whose masternode list to show" required:"true"`
	Entries   bool   `long:"entries" short:"e" description:"List every masternode and quorum of the list"`
}

type pruneConfig struct {
	Height uint32 `long:"below" description:"Delete the masternode lists below this height" required:"true"`
}

// parseCommandLine parses the options common to every command with the
// loaded configuration, and the command with the remaining arguments.
func parseCommandLine(args []string) (cfg *config.Config, subCommand string, commandConfig interface{}, err error) {
	cfg, remainingArgs, err := config.LoadConfig(args)
	if err != nil {
		return nil, "", nil, err
	}
	if cfg.ShowVersion {
		return cfg, "", nil, nil
	}

	parser := flags.NewNamedParser("mnlistdiff", flags.HelpFlag)
	decodeConf := &decodeConfig{}
	parser.AddCommand(decodeSubCmd, "Decodes masternode list diffs",
		"Decodes mnlistdiff or qrinfo payloads and prints their contents", decodeConf)

	applyConf := &applyConfig{}
	parser.AddCommand(applySubCmd, "Applies masternode list diffs",
		"Applies mnlistdiff or qrinfo payloads, in order, to the stored masternode lists", applyConf)

	showConf := &showConfig{}
	parser.AddCommand(showSubCmd, "Shows a stored masternode list",
		"Shows the stored masternode list at the given block", showConf)

	pruneConf := &pruneConfig{}
	parser.AddCommand(pruneSubCmd, "Prunes stored masternode lists",
		"Deletes the stored masternode lists below the given height", pruneConf)

	_, err = parser.ParseArgs(remainingArgs)
	if err != nil {
		return nil, "", nil, err
	}
	if parser.Active == nil {
		return nil, "", nil, errors.New("a command must be specified")
	}

	switch parser.Active.Name {
	case decodeSubCmd:
		commandConfig = decodeConf
	case applySubCmd:
		commandConfig = applyConf
	case showSubCmd:
		commandConfig = showConf
	case pruneSubCmd:
		commandConfig = pruneConf
	}
	return cfg, parser.Active.Name, commandConfig, nil
}
