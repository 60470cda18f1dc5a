// Package logging provides leveled, subsystem-tagged logging for alpaca on
// top of Go's slog package.
//
// Every entry carries a "subsystem" attribute naming the part of the tool
// that produced it, for example "Client", "Reconcile", "Watcher" or "Config".
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Reconcile", "Agent %s updated", hostname)
//	logging.Debug("Client", "GET %s", url)
//	logging.Error("Watcher", err, "Failed to re-apply %s", path)
//
// Messages below the configured level are dropped before formatting. The
// logger must be initialized before use; entries logged earlier are
// discarded.
//
// Log output belongs on stderr. Commands such as merge and csv print exactly
// one JSON document on stdout and scripts rely on that.
package logging
