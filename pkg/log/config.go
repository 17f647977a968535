package log

import (
	"git.backbone/corpix/stingray/pkg/errors"
)

const (
	FormatterAuto    = "auto"
	FormatterJSON    = "json"
	FormatterConsole = "console"
)

type Config struct {
	Level     string `yaml:"level" env:"LEVEL"`
	Formatter string `yaml:"formatter" env:"FORMATTER"`
}

func (c *Config) Default() {
loop:
	for {
		switch {
		case c.Level == "":
			c.Level = "info"
		case c.Formatter == "":
			c.Formatter = FormatterAuto
		default:
			break loop
		}
	}
}

func (c *Config) Validate() error {
	switch c.Formatter {
	case FormatterAuto, FormatterJSON, FormatterConsole:
	default:
		return errors.Errorf(
			"unexpected formatter %q, expected one of: %q",
			c.Formatter, []string{FormatterAuto, FormatterJSON, FormatterConsole},
		)
	}
	return nil
}
