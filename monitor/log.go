package monitor

import "github.com/btcsuite/btclog"

// log is the package-level logger used throughout monitor. It is disabled
// by default; the binary entrypoint wires a real backend in via UseLogger,
// following the same convention as the chainntnfs package.
var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
