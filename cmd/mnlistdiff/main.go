package main

import (
	"fmt"
	"os"

	"github.com/dashevo/dashspv/infrastructure/config"
	"github.com/dashevo/dashspv/infrastructure/metrics"
	"github.com/dashevo/dashspv/version"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

func main() {
	cfg, subCommand, commandConfig, err := parseCommandLine(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			os.Exit(0)
		}
		printErrorAndExit(err)
	}
	if cfg.ShowVersion {
		fmt.Println("mnlistdiff version", version.Version())
		os.Exit(0)
	}

	err = cfg.InitLog()
	if err != nil {
		printErrorAndExit(err)
	}
	defer backendLogClose()
	log.Infof("%s on %s", version.UserAgent(), cfg.NetParams().Name)

	if cfg.MetricsListen != "" {
		exporter := metrics.NewExporter(cfg.MetricsListen)
		spawn("metrics exporter", func() {
			err := exporter.Start()
			if err != nil {
				log.Errorf("The metrics exporter stopped: %s", err)
			}
		})
		defer exporter.Stop()
	}

	err = run(cfg, subCommand, commandConfig)
	if err != nil {
		log.Errorf("%s failed: %+v", subCommand, err)
		printErrorAndExit(err)
	}
}

func run(cfg *config.Config, subCommand string, commandConfig interface{}) error {
	switch subCommand {
	case decodeSubCmd:
		return decode(cfg, commandConfig.(*decodeConfig))
	case applySubCmd:
		return apply(cfg, commandConfig.(*applyConfig))
	case showSubCmd:
		return show(cfg, commandConfig.(*showConfig))
	case pruneSubCmd:
		return prune(cfg, commandConfig.(*pruneConfig))
	default:
		return errors.Errorf("unknown command %s", subCommand)
	}
}

func printErrorAndExit(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}
