package scriptstatus

import "github.com/btcsuite/btclog"

// log is the package-level logger used throughout scriptstatus. It is
// disabled by default, following the convention used by the
// chainntnfs and sweep packages: the binary entrypoint wires a real backend
// in via UseLogger.
var log = btclog.Disabled

// UseLogger sets the package-wide logger. This should be called before the
// package is used, generally by the binary entrypoint's log.go.
func UseLogger(logger btclog.Logger) {
	log = logger
}
