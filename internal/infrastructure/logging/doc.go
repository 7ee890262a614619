// Package logging provides structured logging for the thing gateway.
//
// It is a thin layer over log/slog: New builds a logger from the
// logging section of config.yaml and stamps every entry with the
// service name and version, so log lines from the gateway are
// distinguishable when aggregated with other services.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json for ingestion, text for a terminal
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("thing registered", "thing_id", id)
//
// Components that want a scoped logger derive one with With:
//
//	hubLog := logger.With("component", "hub")
//
// Loggers are safe for concurrent use. Do not log subscriber payloads
// or asset contents, only identifiers.
package logging
