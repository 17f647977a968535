package collector

import (
	"strings"

	"git.backbone/corpix/stingray/pkg/errors"
	"git.backbone/corpix/stingray/pkg/server"
)

const (
	SinkTypeLog    = "log"
	SinkTypeFile   = "file"
	SinkTypeSQLite = "sqlite"
)

var SinkTypes = []string{SinkTypeLog, SinkTypeFile, SinkTypeSQLite}

type Config struct {
	Enable  bool                  `yaml:"enable" env:"ENABLE"`
	Addr    string                `yaml:"addr" env:"ADDR"`
	Path    string                `yaml:"path" env:"PATH"`
	Timeout *server.TimeoutConfig `yaml:"timeout" envPrefix:"TIMEOUT_"`
	Sink    *SinkConfig           `yaml:"sink" envPrefix:"SINK_"`
}

func (c *Config) Default() {
loop:
	for {
		switch {
		case c.Addr == "":
			c.Addr = "127.0.0.1:4290"
		case c.Path == "":
			c.Path = "/beacon.gif"
		case c.Timeout == nil:
			c.Timeout = &server.TimeoutConfig{}
		case c.Sink == nil:
			c.Sink = &SinkConfig{}
		default:
			c.Timeout.Default()
			c.Sink.Default()
			break loop
		}
	}
}

func (c *Config) Validate() error {
	if !c.Enable {
		return nil
	}
	if !strings.HasPrefix(c.Path, "/") {
		return errors.Errorf("beacon path %q should start with /", c.Path)
	}
	err := c.Timeout.Validate()
	if err != nil {
		return errors.Wrap(err, "timeout")
	}
	return c.Sink.Validate()
}

//

type SinkConfig struct {
	Type string `yaml:"type" env:"TYPE"`
	Path string `yaml:"path" env:"PATH"`
}

func (c *SinkConfig) Default() {
loop:
	for {
		switch {
		case c.Type == "":
			c.Type = SinkTypeLog
		default:
			break loop
		}
	}
}

func (c *SinkConfig) Validate() error {
	switch c.Type {
	case SinkTypeLog:
	case SinkTypeFile, SinkTypeSQLite:
		if c.Path == "" {
			return errors.Errorf("%s sink requires a path", c.Type)
		}
	default:
		return errors.Errorf(
			"unexpected sink type %q, expected one of: %q",
			c.Type, SinkTypes,
		)
	}
	return nil
}
