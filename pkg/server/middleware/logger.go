package middleware

import (
	"fmt"
	"io"

	"github.com/labstack/gommon/log"
	"github.com/rs/zerolog"

	zlog "git.backbone/corpix/stingray/pkg/log"
)

// Logger adapts zerolog to the echo.Logger interface.
type Logger struct {
	zlog.Logger
	prefix string
}

var levels = map[log.Lvl]zerolog.Level{
	log.DEBUG: zerolog.DebugLevel,
	log.INFO:  zerolog.InfoLevel,
	log.WARN:  zerolog.WarnLevel,
	log.ERROR: zerolog.ErrorLevel,
	log.OFF:   zerolog.Disabled,
}

func (l *Logger) Output() io.Writer     { return l.Logger }
func (l *Logger) SetOutput(w io.Writer) { l.Logger = l.Logger.Output(w) }
func (l *Logger) Prefix() string        { return l.prefix }
func (l *Logger) SetHeader(h string)    {}

func (l *Logger) SetPrefix(p string) {
	l.prefix = p
	l.Logger = l.Logger.With().Str("prefix", p).Logger()
}

func (l *Logger) Level() log.Lvl {
	current := l.Logger.GetLevel()
	for k, v := range levels {
		if v == current {
			return k
		}
	}
	return log.DEBUG
}

func (l *Logger) SetLevel(v log.Lvl) {
	if level, ok := levels[v]; ok {
		l.Logger = l.Logger.Level(level)
	}
}

func (l *Logger) write(e *zerolog.Event, i ...interface{}) { e.Msg(fmt.Sprint(i...)) }
func (l *Logger) writef(e *zerolog.Event, format string, args ...interface{}) {
	e.Msgf(format, args...)
}
func (l *Logger) writej(e *zerolog.Event, j log.JSON) {
	e.Fields(map[string]interface{}(j)).Send()
}

func (l *Logger) Print(i ...interface{}) { l.write(l.Logger.Log(), i...) }
func (l *Logger) Printf(format string, args ...interface{}) {
	l.writef(l.Logger.Log(), format, args...)
}
func (l *Logger) Printj(j log.JSON) { l.writej(l.Logger.Log(), j) }

func (l *Logger) Debug(i ...interface{}) { l.write(l.Logger.Debug(), i...) }
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.writef(l.Logger.Debug(), format, args...)
}
func (l *Logger) Debugj(j log.JSON) { l.writej(l.Logger.Debug(), j) }

func (l *Logger) Info(i ...interface{}) { l.write(l.Logger.Info(), i...) }
func (l *Logger) Infof(format string, args ...interface{}) {
	l.writef(l.Logger.Info(), format, args...)
}
func (l *Logger) Infoj(j log.JSON) { l.writej(l.Logger.Info(), j) }

func (l *Logger) Warn(i ...interface{}) { l.write(l.Logger.Warn(), i...) }
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.writef(l.Logger.Warn(), format, args...)
}
func (l *Logger) Warnj(j log.JSON) { l.writej(l.Logger.Warn(), j) }

func (l *Logger) Error(i ...interface{}) { l.write(l.Logger.Error(), i...) }
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.writef(l.Logger.Error(), format, args...)
}
func (l *Logger) Errorj(j log.JSON) { l.writej(l.Logger.Error(), j) }

func (l *Logger) Fatal(i ...interface{}) { l.write(l.Logger.Fatal(), i...) }
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.writef(l.Logger.Fatal(), format, args...)
}
func (l *Logger) Fatalj(j log.JSON) { l.writej(l.Logger.Fatal(), j) }

func (l *Logger) Panic(i ...interface{}) { l.write(l.Logger.Panic(), i...) }
func (l *Logger) Panicf(format string, args ...interface{}) {
	l.writef(l.Logger.Panic(), format, args...)
}
func (l *Logger) Panicj(j log.JSON) { l.writej(l.Logger.Panic(), j) }
