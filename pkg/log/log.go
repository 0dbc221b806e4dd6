// Package log configures the process-wide slog logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default text logger at the given level. An empty level
// falls back to the PIPEBOARD_LOG_LEVEL environment variable; anything
// unparseable means info.
func Setup(logLevel string) {
	if logLevel == "" {
		logLevel = os.Getenv("PIPEBOARD_LOG_LEVEL")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule scopes a logger to one package's module name, the attribute the
// rest of the codebase filters on.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
