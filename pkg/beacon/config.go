package beacon

import (
	"net/url"
	"time"

	"git.backbone/corpix/stingray/pkg/errors"
)

type Config struct {
	Server   string          `yaml:"server" env:"SERVER"`
	Limit    int             `yaml:"limit" env:"LIMIT"`
	Timeout  time.Duration   `yaml:"timeout" env:"TIMEOUT"`
	HTTP2    bool            `yaml:"http2" env:"HTTP2"`
	Ignore   IgnoreSet       `yaml:"ignore"`
	Dataset  Fields          `yaml:"dataset"`
	Document *DocumentConfig `yaml:"document"`
}

func (c *Config) Default() {
loop:
	for {
		switch {
		case c.Timeout <= 0:
			c.Timeout = DefaultTimeout
		case c.Ignore == nil:
			c.Ignore = IgnoreSet{}
		case c.Dataset == nil:
			c.Dataset = Fields{}
		case c.Document == nil:
			c.Document = &DocumentConfig{}
		default:
			break loop
		}
	}
}

func (c *Config) Validate() error {
	if c.Limit < 0 {
		return errors.Errorf("limit should be positive, got %d", c.Limit)
	}
	for source := range c.Ignore {
		switch source {
		case SourceNavigator, SourceDocument, SourcePerformance, SourceTiming, SourceMemory:
		default:
			return errors.Errorf("unexpected ignored source %q", source)
		}
	}
	if c.Server == "" {
		return nil
	}

	u, err := url.Parse(c.Server)
	if err != nil {
		return errors.Wrapf(err, "failed to parse server url %q", c.Server)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("server url %q should use http or https scheme", c.Server)
	}

	return nil
}
