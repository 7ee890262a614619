package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/thing-core/internal/infrastructure/config"
)

// Logger is the gateway's structured logger, a thin wrapper over
// slog.Logger. Every line carries the service name and build version so
// aggregated logs from several gateways stay attributable.
//
// All methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// levels maps the config spelling to slog levels. Unknown spellings fall
// back to info in parseLevel.
var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New builds a Logger from the logging section of config.yaml: level,
// json or text format, stdout or stderr output.
//
// Parameters:
//   - cfg: Logging configuration
//   - version: Build version stamped on every line
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}

	return &Logger{
		Logger: slog.New(newHandler(cfg, version, output)),
	}
}

// newHandler builds the slog handler for the given config and writer.
// Split from New so tests can capture output in a buffer.
func newHandler(cfg config.LoggingConfig, version string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return handler.WithAttrs([]slog.Attr{
		slog.String("service", "thingcore"),
		slog.String("version", version),
	})
}

// parseLevel converts a config level string to a slog.Level, defaulting
// to info for anything unrecognised.
func parseLevel(level string) slog.Level {
	if l, ok := levels[strings.ToLower(level)]; ok {
		return l
	}
	return slog.LevelInfo
}

// With returns a child Logger carrying extra default attributes.
//
// Example:
//
//	hubLogger := logger.With("component", "hub")
//	hubLogger.Info("listener registered") // Includes component=hub
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default returns a JSON/info/stdout logger for use during early
// startup, before the configuration file has been read.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
