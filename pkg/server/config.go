package server

import (
	"time"

	"git.backbone/corpix/stingray/pkg/errors"
)

// TimeoutConfig bounds the lifetime of a single connection. Beacons are
// tiny GET requests, so the defaults are short.
type TimeoutConfig struct {
	ReadHeader time.Duration `yaml:"read-header" env:"READ_HEADER"`
	Read       time.Duration `yaml:"read" env:"READ"`
	Write      time.Duration `yaml:"write" env:"WRITE"`
	Idle       time.Duration `yaml:"idle" env:"IDLE"`
}

func (c *TimeoutConfig) Default() {
loop:
	for {
		switch {
		case c.Read <= 0:
			c.Read = 2 * time.Second
		case c.ReadHeader <= 0 || c.ReadHeader > c.Read:
			c.ReadHeader = c.Read
		case c.Write <= 0:
			c.Write = 2 * time.Second
		case c.Idle <= 0:
			c.Idle = 30 * time.Second
		default:
			break loop
		}
	}
}

func (c *TimeoutConfig) Validate() error {
	if c.ReadHeader > c.Read {
		return errors.Errorf(
			"read-header timeout %s should not exceed read timeout %s",
			c.ReadHeader, c.Read,
		)
	}
	return nil
}
