package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/dashevo/dashspv/domain/masternode/retrievalcache"
	"github.com/dashevo/dashspv/infrastructure/crypto/bls"
	"github.com/dashevo/dashspv/infrastructure/logger"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	defaultConfigFilename = "dashspv.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "dashspv.log"
	defaultErrLogFilename = "dashspv_err.log"
	defaultDBCacheSizeMiB = 16
	defaultQueueSize      = 100
	defaultMaxParkedDiffs = 64
	defaultBanThreshold   = 100
	defaultLegacyBLS      = legacyBLSSkip
	minRequestTimeout     = time.Second

	legacyBLSSkip   = "skip"
	legacyBLSReject = "reject"
)

var (
	// DefaultAppDir is the default home directory for dashspv.
	DefaultAppDir = btcutil.AppDataDir("dashspv", false)

	defaultConfigFile = filepath.Join(DefaultAppDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(DefaultAppDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(DefaultAppDir, defaultLogDirname)
)

// Flags defines the configuration options for dashspv.
//
// See LoadConfig for details on the configuration load process.
type Flags struct {
	ShowVersion    bool          `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile     string        `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir        string        `short:"b" long:"datadir" description:"Directory to store masternode lists"`
	LogDir         string        `long:"logdir" description:"Directory to log output."`
	LogLevel       string        `short:"d" long:"loglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	DBCacheSizeMiB int           `long:"dbcachesize" description:"Size of the database cache in MiB"`
	QueueSize      int           `long:"queuesize" description:"Maximum number of messages waiting to be processed"`
	MaxParkedDiffs int           `long:"maxparkeddiffs" description:"Maximum number of diffs kept while the lists they build on are retrieved"`
	MaxInFlight    int           `long:"maxinflight" description:"Maximum number of masternode lists requested from peers at once"`
	CacheCapacity  int           `long:"cachecapacity" description:"Number of masternode lists kept in memory"`
	MaxRetrievals  int           `long:"maxretrievals" description:"Maximum number of masternode list retrievals tracked at once"`
	RequestTimeout time.Duration `long:"requesttimeout" description:"How long a peer has to answer a request. Valid time units are {s, m, h}. Minimum 1 second"`
	BanThreshold   uint32        `long:"banthreshold" description:"Maximum allowed ban score before disconnecting and banning misbehaving peers."`
	UseQRInfo      bool          `long:"qrinfo" description:"Request qrinfo messages for blocks past the rotated quorums activation"`
	LegacyBLS      string        `long:"legacybls" description:"How to treat quorum signatures of the legacy BLS scheme" choice:"skip" choice:"reject"`
	KeepLists      uint32        `long:"keeplists" description:"Keep the masternode lists of this many blocks below the latest list on disk -- 0 keeps every list"`
	MetricsListen  string        `long:"metricslisten" description:"Serve Prometheus metrics on the given interface/port, e.g. :9101"`
	NetworkFlags
}

// Config defines the configuration options for dashspv.
//
// See LoadConfig for details on the configuration load process.
type Config struct {
	*Flags
}

// DefaultFlags returns the flags dashspv runs with when nothing is
// configured.
func DefaultFlags() *Flags {
	return &Flags{
		ConfigFile:     defaultConfigFile,
		DataDir:        defaultDataDir,
		LogDir:         defaultLogDir,
		LogLevel:       defaultLogLevel,
		DBCacheSizeMiB: defaultDBCacheSizeMiB,
		QueueSize:      defaultQueueSize,
		MaxParkedDiffs: defaultMaxParkedDiffs,
		MaxInFlight:    retrievalcache.DefaultMaxInFlight,
		CacheCapacity:  retrievalcache.DefaultCapacity,
		MaxRetrievals:  retrievalcache.DefaultMaxRetrievals,
		RequestTimeout: retrievalcache.DefaultRequestTimeout,
		BanThreshold:   defaultBanThreshold,
		LegacyBLS:      defaultLegacyBLS,
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultAppDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// LoadConfig initializes and parses the config using a config file and the
// given command line arguments.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in dashspv functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options. Command line options always take
// precedence.
func LoadConfig(args []string) (*Config, []string, error) {
	cfgFlags := DefaultFlags()

	// Pre-parse the command line options to see if an alternative config
	// file was specified. Any errors aside from the help message error can
	// be ignored here since they will be caught by the final parse below.
	preCfg := *cfgFlags
	preParser := flags.NewParser(&preCfg, flags.HelpFlag|flags.IgnoreUnknown)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil, err
		}
	}
	if preCfg.ShowVersion {
		return &Config{Flags: &preCfg}, nil, nil
	}

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(cfgFlags, flags.HelpFlag|flags.PassDoubleDash|flags.IgnoreUnknown)
	if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) && preCfg.ConfigFile == defaultConfigFile {
		err := createDefaultConfigFile(preCfg.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating a default config file: %s\n", err)
		}
	}
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, nil, errors.Wrapf(err, "error parsing config file %s", preCfg.ConfigFile)
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	cfg := &Config{Flags: cfgFlags}
	err = cfg.ResolveNetwork(parser)
	if err != nil {
		return nil, nil, err
	}
	err = cfg.validate()
	if err != nil {
		return nil, nil, err
	}

	// Namespace the data and log directories per network.
	cfg.DataDir = filepath.Join(cleanAndExpandPath(cfg.DataDir), cfg.NetParams().Name)
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir), cfg.NetParams().Name)

	if configFileError != nil {
		log.Warnf("%s", configFileError)
	}
	return cfg, remainingArgs, nil
}

func (cfg *Config) validate() error {
	if cfg.RequestTimeout < minRequestTimeout {
		return errors.Errorf("the request timeout may not be lower than %s -- parsed [%s]",
			minRequestTimeout, cfg.RequestTimeout)
	}
	if cfg.DBCacheSizeMiB <= 0 {
		return errors.Errorf("the database cache size must be positive -- parsed [%d]", cfg.DBCacheSizeMiB)
	}
	if cfg.MaxInFlight <= 0 {
		return errors.Errorf("the number of masternode lists requested at once must be positive "+
			"-- parsed [%d]", cfg.MaxInFlight)
	}
	if cfg.CacheCapacity <= 0 {
		return errors.Errorf("the number of masternode lists kept in memory must be positive "+
			"-- parsed [%d]", cfg.CacheCapacity)
	}
	if cfg.MaxRetrievals < cfg.MaxInFlight {
		return errors.Errorf("the number of tracked retrievals may not be lower than the number "+
			"requested at once -- parsed [%d]", cfg.MaxRetrievals)
	}
	if cfg.BanThreshold == 0 {
		return errors.New("the ban threshold must be positive")
	}
	if cfg.LogLevel != "show" {
		if err := validateLogLevel(cfg.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// InitLog starts logging to the log directory and applies the configured
// log levels.
func (cfg *Config) InitLog() error {
	logger.InitLog(filepath.Join(cfg.LogDir, defaultLogFilename),
		filepath.Join(cfg.LogDir, defaultErrLogFilename))
	return logger.ParseAndSetLogLevels(cfg.LogLevel)
}

// RetrievalCacheConfig returns the limits of the retrieval cache.
func (cfg *Config) RetrievalCacheConfig() retrievalcache.Config {
	return retrievalcache.Config{
		MaxInFlight:    cfg.MaxInFlight,
		Capacity:       cfg.CacheCapacity,
		RequestTimeout: cfg.RequestTimeout,
		MaxRetrievals:  cfg.MaxRetrievals,
	}
}

// LegacyPolicy returns how quorum signatures of the legacy BLS scheme are
// treated.
func (cfg *Config) LegacyPolicy() bls.LegacyPolicy {
	if cfg.LegacyBLS == legacyBLSReject {
		return bls.LegacyReject
	}
	return bls.LegacySkip
}

// validateLogLevel checks level the way logger.ParseAndSetLogLevels parses
// it, without applying it.
func validateLogLevel(level string) error {
	for _, pair := range strings.Split(level, ",") {
		subsystemLevel := pair
		if strings.Contains(pair, "=") {
			fields := strings.Split(pair, "=")
			if len(fields) != 2 {
				return errors.Errorf("the specified log level contains an invalid subsystem/level pair [%s]", pair)
			}
			subsystemLevel = fields[1]
		}
		if _, ok := logger.LevelFromString(subsystemLevel); !ok {
			return errors.Errorf("the specified log level [%s] is invalid", subsystemLevel)
		}
	}
	return nil
}

// createDefaultConfigFile writes a commented out configuration file
// listing the available options to the given destination path.
func createDefaultConfigFile(destinationPath string) error {
	// Create the destination directory if it does not exists
	err := os.MkdirAll(filepath.Dir(destinationPath), 0700)
	if err != nil {
		return err
	}
	return os.WriteFile(destinationPath, []byte(sampleConfig), 0600)
}
