package telemetry

import (
	"git.backbone/corpix/stingray/pkg/errors"
	"git.backbone/corpix/stingray/pkg/server"
)

type Config struct {
	Enable  bool                  `yaml:"enable" env:"ENABLE"`
	Addr    string                `yaml:"addr" env:"ADDR"`
	Path    string                `yaml:"path" env:"PATH"`
	Timeout *server.TimeoutConfig `yaml:"timeout" envPrefix:"TIMEOUT_"`
}

func (c *Config) Default() {
loop:
	for {
		switch {
		case c.Addr == "":
			c.Addr = "127.0.0.1:4280"
		case c.Path == "":
			c.Path = "/"
		case c.Timeout == nil:
			c.Timeout = &server.TimeoutConfig{}
		default:
			c.Timeout.Default()
			break loop
		}
	}
}

func (c *Config) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.Path == "" {
		return errors.New("path should not be empty")
	}

	return errors.Wrap(c.Timeout.Validate(), "timeout")
}
