// Package logger provides a thin, opinionated wrapper around zerolog.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level  string
	Pretty bool
}

// New builds a zerolog.Logger from cfg and sets the zerolog global level
// as a side effect, matching the rest of the process to the same verbosity.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var writer = os.Stdout
	var output zerolog.ConsoleWriter
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
		return zerolog.New(output).With().Timestamp().Caller().Logger()
	}

	return zerolog.New(writer).With().Timestamp().Caller().Logger()
}

// SetGlobalLogger installs log as zerolog.DefaultContextLogger, the
// logger zerolog.Ctx returns for a context that carries none. It does
// not replace the logger of the zerolog/log package.
func SetGlobalLogger(log zerolog.Logger) {
	zerolog.DefaultContextLogger = &log
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
