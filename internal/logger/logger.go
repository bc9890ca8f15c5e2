// Package logger configures the zerolog root logger. Modules derive child
// loggers carrying a module field from the one built here.
package logger

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New builds the root logger. Output is a console writer when stdout is a
// terminal, JSON otherwise. Unknown level strings fall back to info.
func New(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out = os.Stdout
	logger := zerolog.New(out)
	if isatty.IsTerminal(out.Fd()) {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly})
	}

	return logger.Level(lvl).With().Timestamp().Logger()
}
