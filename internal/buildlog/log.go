// Package buildlog reproduces the narrow slice of the breez/lightninglib
// build package that cmd/cfdmonitord/log.go depends on: a LogWriter that fans out to
// both stdout and a rotated log file, and a NewSubLogger constructor. The
// upstream build package itself was not part of the retrieved dependency
// set, so this package stands in for it.
package buildlog

import (
	"io"
	"os"

	"github.com/btcsuite/btclog"
)

// LogWriter is an io.Writer that writes to both standard output and, once
// RotatorPipe is set, a rotated log file on disk. The zero value writes to
// stdout only, matching the behavior before initLogRotator runs.
type LogWriter struct {
	RotatorPipe *io.PipeWriter
}

// Write writes p to stdout and, if set, to the rotator pipe. An error from
// the rotator pipe does not suppress the stdout write.
func (w *LogWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if w.RotatorPipe != nil {
		return w.RotatorPipe.Write(p)
	}
	return len(p), nil
}

// NewSubLogger creates a new subsystem logger with the given tag. root is
// typically the method value backendLog.Logger of a *btclog.Backend.
func NewSubLogger(tag string, root func(string) btclog.Logger) btclog.Logger {
	return root(tag)
}
