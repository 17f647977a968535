package config

import (
	"io/ioutil"
	"os"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/go-yaml/yaml"

	"git.backbone/corpix/stingray/pkg/beacon"
	"git.backbone/corpix/stingray/pkg/collector"
	"git.backbone/corpix/stingray/pkg/errors"
	"git.backbone/corpix/stingray/pkg/log"
	"git.backbone/corpix/stingray/pkg/telemetry"
)

var (
	EnvironPrefix = "STINGRAY"

	Marshaler   = yaml.Marshal
	Unmarshaler = yaml.Unmarshal
)

type Config struct {
	Log               *log.Config       `yaml:"log" envPrefix:"LOG_"`
	Telemetry         *telemetry.Config `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	Collector         *collector.Config `yaml:"collector" envPrefix:"COLLECTOR_"`
	Sender            *beacon.Config    `yaml:"sender" envPrefix:"SENDER_"`
	ShutdownGraceTime time.Duration     `yaml:"shutdown-grace-time" env:"SHUTDOWN_GRACE_TIME"`
}

func (c *Config) Default() {
loop:
	for {
		switch {
		case c.Log == nil:
			c.Log = &log.Config{}
		case c.Telemetry == nil:
			c.Telemetry = &telemetry.Config{}
		case c.Collector == nil:
			c.Collector = &collector.Config{}
		case c.Sender == nil:
			c.Sender = &beacon.Config{}
		case c.ShutdownGraceTime <= 0:
			c.ShutdownGraceTime = 10 * time.Second
		default:
			c.Log.Default()
			c.Telemetry.Default()
			c.Collector.Default()
			c.Sender.Default()
			break loop
		}
	}
}

// Validate checks every section, reporting the section which failed.
func Validate(c *Config) error {
	sections := []struct {
		name     string
		validate func() error
	}{
		{"log", c.Log.Validate},
		{"telemetry", c.Telemetry.Validate},
		{"collector", c.Collector.Validate},
		{"sender", c.Sender.Validate},
	}

	for _, section := range sections {
		err := section.validate()
		if err != nil {
			return errors.Wrapf(err, "invalid %s configuration", section.name)
		}
	}

	return nil
}

// Default returns the configuration used when nothing is configured.
func Default() (*Config, error) {
	c := &Config{}
	c.Default()
	return c, Validate(c)
}

// Load merges configuration files in order, skipping ones which do not
// exist, then applies environment overrides and defaults.
func Load(paths []string) (*Config, error) {
	c := &Config{}

	for _, path := range paths {
		buf, err := ioutil.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "failed to read configuration file %q", path)
		}

		err = Unmarshaler(buf, c)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse configuration file %q", path)
		}
	}

	c.Default()

	err := env.ParseWithOptions(c, env.Options{Prefix: EnvironPrefix + "_"})
	if err != nil {
		return nil, errors.Wrap(err, "failed to apply environment configuration")
	}

	c.Default()

	return c, nil
}
