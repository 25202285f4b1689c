// Package logging provides structured logging for steamdisc.
//
// This package wraps zap with the small set of conveniences the discovery
// engine needs. Logging is silent by default so the CLI's own output stays
// clean; setting STEAMDISC_LOG_LEVEL enables console logging.
//
// # Log Levels
//
//   - Debug: per-datagram detail (probes sent, replies received, dropped
//     noise, hex dumps)
//   - Info: normal operations (scan start/stop, server lifecycle)
//   - Warn: non-fatal issues (failed re-broadcast, dropped client)
//   - Error: fatal issues (bind failures, server startup)
//
// # Usage
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
//	logging.Debug("discover reply",
//	    zap.String("from", "192.168.1.50:30303"),
//	    zap.Int("bytes", 48),
//	)
//
// # Thread Safety
//
// All functions are safe for concurrent use; zap handles synchronization.
package logging
