// Package obslog configures the process-wide structured logger shared by the
// manager, storage node, and client binaries.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance, initialized by Init. Until Init is
// called it defaults to a console writer at info level so packages that log
// during package-level init (none currently do) still produce output.
var Logger zerolog.Logger

func init() {
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// Config controls how Init configures the global logger.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Unrecognized or
	// empty values fall back to "info".
	Level string
	// JSON selects structured JSON output instead of the human-readable
	// console writer; daemons typically want JSON when run under a
	// supervisor and console output when run interactively.
	JSON bool
	// Output defaults to os.Stderr when nil.
	Output io.Writer
}

// Init installs the global Logger per cfg. Safe to call once at process
// startup before any component logger is derived via Component.
func Init(cfg Config) {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.JSON {
		Logger = zerolog.New(out).With().Timestamp().Logger().Level(level)
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(level)
}

// Component returns a child logger tagged with a "component" field, the way
// callers scope logs to "manager", "node", "client", or a specific package.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
