// Package logging provides structured logging for the ZooThing connection manager.
//
// This package wraps zap logger with convenience functions for the logging
// patterns used throughout the daemon: dispatcher activity, connection state
// transitions and configuration portal requests.
//
// # Log Levels
//
//   - Debug: Dispatcher ticks, queued message kinds, adapter call details
//   - Info: State transitions, connect/disconnect, AP bring-up, saved settings
//   - Warn: Non-fatal issues (failed connect attempts, dropped messages, save errors)
//   - Error: Startup failures, adapter setup errors
//
// # Structured Logging
//
//	logging.Info("Station connected",
//	    zap.String("ssid", "home"),
//	    zap.String("hostname", "Fido"),
//	)
//
// Secrets must go through Redact before being attached to a field:
//
//	logging.Info("Starting AP", zap.String("passphrase", logging.Redact(pass)))
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When neither a level nor ZOOTHING_LOG_LEVEL is given the logger is a no-op,
// which keeps CLI subcommands quiet by default.
package logging
