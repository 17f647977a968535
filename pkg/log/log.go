package log

import (
	"io"
	stdlog "log"
	"os"

	isatty "github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"git.backbone/corpix/stingray/pkg/errors"
)

type (
	Logger = zerolog.Logger
	Event  = zerolog.Event
	Level  = zerolog.Level
)

var Output io.Writer = os.Stderr

// Create builds a root logger writing to Output.
func Create(c Config) (Logger, error) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return Logger{}, errors.Wrapf(err, "failed to parse log level %q", c.Level)
	}

	w := Output
	switch c.Formatter {
	case FormatterConsole:
		w = zerolog.ConsoleWriter{Out: Output}
	case FormatterAuto, "":
		if f, ok := Output.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			w = zerolog.ConsoleWriter{Out: Output}
		}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// Nop returns a logger which drops everything, handy in tests.
func Nop() Logger {
	return zerolog.Nop()
}

// Std adapts l to the standard library logger for packages which require one.
func Std(l Logger) *stdlog.Logger {
	return stdlog.New(l, "", 0)
}
