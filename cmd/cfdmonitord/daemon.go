package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	goerrors "github.com/go-errors/errors"
	"github.com/itchysats/cfdmonitor/eventlogdb"
	"github.com/itchysats/cfdmonitor/indexer"
	"github.com/itchysats/cfdmonitor/monitor"
)

// cfdMonitorMain is the daemon's real entrypoint, grounded on daemon.LndMain:
// parse config, stand up logging, dial the indexer, open the event log
// store, replay it into the monitor, and block until shutdown is requested.
func cfdMonitorMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogRotator(
		filepath.Join(cfg.LogDir, defaultLogFilename),
		cfg.MaxLogFileSize,
		cfg.MaxLogFiles,
	); err != nil {
		return goerrors.Wrap(err, 0)
	}
	setLogLevels(cfg.DebugLevel)

	client, err := indexer.NewRPCClient(cfg.IndexerRPCHost, cfg.IndexerRPCUser, cfg.IndexerRPCPass)
	if err != nil {
		return goerrors.Wrap(fmt.Errorf("failed to dial indexer: %w", err), 0)
	}

	store, err := eventlogdb.Open(cfg.EventLogDSN)
	if err != nil {
		return goerrors.Wrap(fmt.Errorf("failed to open event log: %w", err), 0)
	}
	defer store.Close()

	header, err := client.BlockHeadersSubscribe()
	if err != nil {
		return goerrors.Wrap(fmt.Errorf("failed to fetch initial tip: %w", err), 0)
	}

	actor := monitor.NewActor(monitor.Config{
		Indexer:  client,
		Store:    store,
		Executor: store,
	}, header.Height)

	if err := actor.Start(); err != nil {
		return goerrors.Wrap(fmt.Errorf("failed to start monitor actor: %w", err), 0)
	}
	defer actor.Stop()

	monLog.Infof("cfdmonitord started, tip height %d", header.Height)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	monLog.Infof("cfdmonitord shutting down")
	return nil
}
