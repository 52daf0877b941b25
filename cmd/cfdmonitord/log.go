package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/itchysats/cfdmonitor/cfdmodel"
	"github.com/itchysats/cfdmonitor/indexer"
	"github.com/itchysats/cfdmonitor/internal/buildlog"
	"github.com/itchysats/cfdmonitor/monitor"
	"github.com/itchysats/cfdmonitor/scriptstatus"
	"github.com/jrick/logrotate/rotator"
)

// Loggers per subsystem, following the same layout as
// daemon/log.go: one rotated backend, one subsystem tag per package.
var (
	logWriter = &buildlog.LogWriter{}

	backendLog = btclog.NewBackend(logWriter)

	logRotator *rotator.Rotator

	monLog = buildlog.NewSubLogger("MNTR", backendLog.Logger)
	sstLog = buildlog.NewSubLogger("SCST", backendLog.Logger)
	cfdLog = buildlog.NewSubLogger("CFDM", backendLog.Logger)
	idxLog = buildlog.NewSubLogger("IDXR", backendLog.Logger)
)

func init() {
	monitor.UseLogger(monLog)
	scriptstatus.UseLogger(sstLog)
	cfdmodel.UseLogger(cfdLog)
	indexer.UseLogger(idxLog)
}

var subsystemLoggers = map[string]btclog.Logger{
	"MNTR": monLog,
	"SCST": sstLog,
	"CFDM": cfdLog,
	"IDXR": idxLog,
}

// initLogRotator initializes the logging rotator to write logs to logFile
// and create roll files in the same directory.
func initLogRotator(logFile string, maxLogFileSize, maxLogFiles int) error {
	logDir, _ := filepath.Split(logFile)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	r, err := rotator.New(logFile, int64(maxLogFileSize*1024), false, maxLogFiles)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	pr, pw := io.Pipe()
	go r.Run(pr)

	logWriter.RotatorPipe = pw
	logRotator = r

	return nil
}

// setLogLevels sets the log level for all subsystem loggers.
func setLogLevels(logLevel string) {
	level, _ := btclog.LevelFromString(logLevel)
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}
