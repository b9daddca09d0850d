// Package logging provides structured logging for Indigo Core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the process.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for bench debugging (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	sched.SetLogger(logger.Component("poller"))
//	logger.Error("bus exchange failed", "addr", 0x09, "error", err)
//
// Never log MQTT credentials.
package logging
