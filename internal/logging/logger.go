// Package logging configures the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default slog logger. Verbose raises the level to
// debug; the LOG_LEVEL environment variable (DEBUG, INFO, WARN, ERROR)
// overrides the default when verbose is off.
func Setup(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else {
		switch os.Getenv("LOG_LEVEL") {
		case "DEBUG":
			level = slog.LevelDebug
		case "WARN":
			level = slog.LevelWarn
		case "ERROR":
			level = slog.LevelError
		}
	}

	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

// Component returns a logger tagged with the given component name.
// Call after Setup so the tagged logger inherits the installed handler.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
