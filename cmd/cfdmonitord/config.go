package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "cfdmonitord.conf"
	defaultLogFilename    = "cfdmonitord.log"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10
	defaultLogLevel       = "info"
)

var (
	defaultConfigDir = filepath.Join(os.Getenv("HOME"), ".cfdmonitord")
	defaultLogDir    = filepath.Join(defaultConfigDir, "logs")
)

// config holds the flags and config-file settings the monitor daemon
// accepts.
type config struct {
	ConfigFile     string `long:"configfile" description:"Path to configuration file"`
	LogDir         string `long:"logdir" description:"Directory to log output"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 for no rotation)"`
	DebugLevel     string `long:"debuglevel" description:"Logging level for all subsystems"`

	// IndexerRPCHost/User/Pass dial the Electrum-style indexer.
	IndexerRPCHost string `long:"indexer.rpchost" description:"Host:port of the indexer RPC endpoint"`
	IndexerRPCUser string `long:"indexer.rpcuser" description:"Username for indexer RPC authentication"`
	IndexerRPCPass string `long:"indexer.rpcpass" description:"Password for indexer RPC authentication"`

	// EventLogDSN is the file path of the bbolt event log database
	// (eventlogdb) this daemon replays at startup.
	EventLogDSN string `long:"eventlog.dsn" description:"Path to the event log database file"`
}

// defaultConfig returns the config populated with every default, before
// flags or a config file are applied.
func defaultConfig() config {
	return config{
		ConfigFile:     filepath.Join(defaultConfigDir, defaultConfigFilename),
		LogDir:         defaultLogDir,
		MaxLogFileSize: defaultMaxLogFileSize,
		MaxLogFiles:    defaultMaxLogFiles,
		DebugLevel:     defaultLogLevel,
	}
}

// loadConfig parses command line flags (and, if present, the config file
// they point to) into a config, following the flags-then-ini
// idiom.
func loadConfig() (*config, error) {
	preCfg := defaultConfig()

	if _, err := flags.Parse(&preCfg); err != nil {
		return nil, err
	}

	cfg := preCfg
	if err := flags.IniParse(cfg.ConfigFile, &cfg); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			return nil, fmt.Errorf("failed to parse config file %v: %w", cfg.ConfigFile, err)
		}
	}

	if _, err := flags.Parse(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
