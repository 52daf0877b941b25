package indexer

import "github.com/btcsuite/btclog"

// log is the package-level logger used throughout indexer.
var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
