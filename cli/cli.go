package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	daemon "github.com/coreos/go-systemd/daemon"
	revip "github.com/corpix/revip"
	spew "github.com/davecgh/go-spew/spew"
	cli "github.com/urfave/cli/v2"
	di "go.uber.org/dig"

	"git.backbone/corpix/stingray/pkg/beacon"
	"git.backbone/corpix/stingray/pkg/collector"
	"git.backbone/corpix/stingray/pkg/config"
	"git.backbone/corpix/stingray/pkg/errors"
	"git.backbone/corpix/stingray/pkg/log"
	"git.backbone/corpix/stingray/pkg/meta"
	"git.backbone/corpix/stingray/pkg/telemetry"
)

var (
	Stdout = os.Stdout
	Stderr = os.Stderr

	Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "logging level (debug, info, warn, error)",
		},
		&cli.StringSliceFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{config.EnvironPrefix + "_CONFIG"},
			Usage:   "path to application configuration file/files (separate multiple files with comma)",
			Value:   cli.NewStringSlice("config.yml"),
		},
	}
	Commands = []*cli.Command{
		{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration tools",
			Subcommands: []*cli.Command{
				{
					Name:    "show-default",
					Aliases: []string{"sd"},
					Usage:   "Show default configuration",
					Action:  ConfigShowDefaultAction,
				},
				{
					Name:    "show",
					Aliases: []string{"s"},
					Usage:   "Show effective configuration",
					Action:  ConfigShowAction,
				},
				{
					Name:    "validate",
					Aliases: []string{"v"},
					Usage:   "Validate configuration and exit",
					Action:  ConfigValidateAction,
				},
			},
		},
		{
			Name:    "serve",
			Aliases: []string{"s"},
			Usage:   "Run beacon collector",
			Action:  ServeAction,
		},
		{
			Name:      "send",
			Usage:     "Send a single beacon to the configured server",
			ArgsUsage: " ",
			Action:    SendAction,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "server",
					Aliases: []string{"s"},
					Usage:   "beacon URL, overrides sender.server",
				},
				&cli.StringSliceFlag{
					Name:  "set",
					Usage: "set dataset value (key=value), numbers and booleans are converted",
				},
				&cli.StringFlag{
					Name:  "remove",
					Usage: "remove dataset keys (separate multiple keys with comma or space)",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Usage:   "print the payload and URL without sending",
				},
			},
		},
		{
			Name:    "dump",
			Aliases: []string{"d"},
			Usage:   "Print hits stored by the collector sink",
			Action:  DumpAction,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Usage:   "sink type (file or sqlite), defaults to collector.sink.type",
				},
				&cli.StringFlag{
					Name:    "path",
					Aliases: []string{"p"},
					Usage:   "sink path, defaults to collector.sink.path",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: 100,
					Usage: "maximum number of latest hits to print (sqlite only)",
				},
				&cli.BoolFlag{
					Name:  "spew",
					Usage: "dump hits with go-spew instead of JSON",
				},
			},
		},
	}

	c *di.Container
)

type doneCh = chan struct{}

func Before(ctx *cli.Context) error {
	var err error

	c = di.New()

	//

	err = c.Provide(func() doneCh { return make(doneCh) })
	if err != nil {
		return err
	}

	err = c.Provide(func() *cli.Context { return ctx })
	if err != nil {
		return err
	}

	err = c.Provide(func() *spew.ConfigState {
		return &spew.ConfigState{
			DisableMethods:          false,
			DisableCapacities:       true,
			DisablePointerAddresses: true,
			Indent:                  "  ",
			SortKeys:                true,
			SpewKeys:                false,
		}
	})
	if err != nil {
		return err
	}

	err = c.Provide(func() *json.Encoder {
		enc := json.NewEncoder(Stdout)
		enc.SetIndent("", "  ")
		return enc
	})
	if err != nil {
		return err
	}

	err = c.Provide(func(ctx *cli.Context) (*config.Config, error) {
		c, err := config.Load(ctx.StringSlice("config"))
		if err != nil {
			return nil, err
		}

		return c, nil
	})
	if err != nil {
		return err
	}

	err = c.Provide(func(ctx *cli.Context, c *config.Config) (log.Logger, error) {
		lc := *c.Log
		level := ctx.String("log-level")
		if level != "" {
			lc.Level = level
		}

		return log.Create(lc)
	})
	if err != nil {
		return err
	}

	err = c.Provide(func() *telemetry.Registry { return telemetry.DefaultRegistry })
	if err != nil {
		return err
	}

	//

	err = c.Provide(func(
		c *config.Config,
		l log.Logger,
		r *telemetry.Registry,
		done doneCh,
		running *sync.WaitGroup,
		errc chan error,
	) (*telemetry.Server, error) {
		start := func(t *telemetry.Server) {
			errc <- errors.Wrap(
				t.ListenAndServe(),
				"failed while listen and serve telemetry server",
			)
		}

		finalize := func(t *telemetry.Server) {
			defer running.Done()

			<-done
			err := t.Shutdown(context.Background())
			if err != nil {
				l.Error().Err(err).Msg("telemetry shutdown failed")
			}
		}

		if c.Telemetry.Enable {
			lr, err := net.Listen("tcp", c.Telemetry.Addr)
			if err != nil {
				return nil, err
			}
			t := telemetry.New(*c.Telemetry, l, r, lr)

			running.Add(1)

			go start(t)
			go finalize(t)

			return t, nil
		}

		return nil, nil
	})
	if err != nil {
		return err
	}

	//

	err = c.Provide(func() *sync.WaitGroup { return &sync.WaitGroup{} })
	if err != nil {
		return err
	}

	err = c.Provide(func() chan error { return make(chan error, 2) })
	if err != nil {
		return err
	}

	err = c.Provide(func() chan os.Signal {
		sig := make(chan os.Signal, 1)
		signal.Notify(
			sig,
			syscall.SIGQUIT,
			syscall.SIGTERM,
			syscall.SIGINT,
			syscall.SIGHUP,
		)
		return sig
	})
	if err != nil {
		return err
	}

	return nil
}

//

func ConfigShowDefaultAction(ctx *cli.Context) error {
	c, err := config.Default()
	if err != nil {
		return err
	}

	write := revip.ToWriter(Stdout, config.Marshaler)

	return write(c)
}

func ConfigShowAction(ctx *cli.Context) error {
	return c.Invoke(func(c *config.Config) error {
		write := revip.ToWriter(Stdout, config.Marshaler)

		return write(c)
	})
}

func ConfigValidateAction(ctx *cli.Context) error {
	return c.Invoke(func(c *config.Config, l log.Logger) error {
		err := config.Validate(c)
		if err != nil {
			return err
		}

		l.Info().
			Strs("configs", ctx.StringSlice("config")).
			Msg("configuration validation is ok")

		return nil
	})
}

//

// parseValue converts command line values into the scalar they look like.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	return s
}

func SendAction(ctx *cli.Context) error {
	return c.Invoke(func(
		cfg *config.Config,
		l log.Logger,
		r *telemetry.Registry,
		dump *spew.ConfigState,
	) error {
		sc := *cfg.Sender
		if server := ctx.String("server"); server != "" {
			sc.Server = server
		}
		err := sc.Validate()
		if err != nil {
			return err
		}

		s, err := beacon.FromConfig(sc, l, r)
		if err != nil {
			return err
		}
		s.OnError(func(err error) {
			l.Warn().Err(err).Str("server", s.Server()).Msg("beacon error")
		})

		for _, pair := range ctx.StringSlice("set") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 || kv[0] == "" {
				return errors.Errorf("expected key=value, got %q", pair)
			}
			s.Set(kv[0], parseValue(kv[1]))
		}
		if keys := ctx.String("remove"); keys != "" {
			s.Remove(keys)
		}

		if ctx.Bool("dry-run") {
			u, ok := s.URL()
			dump.Fdump(Stdout, s.Payload())
			fmt.Fprintln(Stdout, u)
			if !ok {
				return errors.Errorf(
					"beacon url length %d exceeds limit %d",
					len(u), s.Limit(),
				)
			}
			return nil
		}

		done := make(chan error, 1)
		if !s.Write(func(err error) { done <- err }) {
			return errors.Errorf("beacon url exceeds limit %d, nothing was sent", s.Limit())
		}

		err = <-done
		if err != nil {
			return err
		}

		l.Info().Str("server", s.Server()).Msg("beacon delivered")
		return nil
	})
}

//

func DumpAction(ctx *cli.Context) error {
	return c.Invoke(func(
		cfg *config.Config,
		enc *json.Encoder,
		dump *spew.ConfigState,
	) error {
		sc := *cfg.Collector.Sink
		if t := ctx.String("type"); t != "" {
			sc.Type = t
		}
		if p := ctx.String("path"); p != "" {
			sc.Path = p
		}
		err := sc.Validate()
		if err != nil {
			return err
		}

		var hits []collector.Hit
		switch sc.Type {
		case collector.SinkTypeFile:
			hits, err = collector.ReadFile(sc.Path)
		case collector.SinkTypeSQLite:
			var sink *collector.SQLiteSink
			sink, err = collector.OpenSQLiteSink(sc.Path)
			if err != nil {
				return err
			}
			defer sink.Close()
			hits, err = sink.Hits(context.Background(), ctx.Int("limit"))
		default:
			return errors.Errorf("%s sink does not store hits", sc.Type)
		}
		if err != nil {
			return err
		}

		for _, hit := range hits {
			if ctx.Bool("spew") {
				dump.Fdump(Stdout, hit)
				continue
			}
			err = enc.Encode(hit)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

//

func ServeAction(ctx *cli.Context) error {
	err := c.Provide(func(
		c *config.Config,
		l log.Logger,
		r *telemetry.Registry,
		done doneCh,
		running *sync.WaitGroup,
		errc chan error,
	) (*collector.Collector, error) {
		if !c.Collector.Enable {
			return nil, nil
		}

		sink, err := collector.NewSink(*c.Collector.Sink, l)
		if err != nil {
			return nil, err
		}

		lr, err := net.Listen("tcp", c.Collector.Addr)
		if err != nil {
			_ = sink.Close()
			return nil, err
		}

		col, err := collector.New(*c.Collector, l, r, lr, sink)
		if err != nil {
			_ = lr.Close()
			_ = sink.Close()
			return nil, err
		}

		running.Add(1)

		go func() {
			errc <- errors.Wrap(
				col.ListenAndServe(),
				"failed while listen and serve collector",
			)
		}()
		go func() {
			defer running.Done()

			<-done
			l.Info().Msg("stopping collector")
			err := col.Shutdown(context.Background())
			if err != nil {
				l.Error().Err(err).Msg("collector shutdown failed")
			}
		}()

		return col, nil
	})
	if err != nil {
		return err
	}

	//

	components := c.String()
	_ = c.Invoke(func(l log.Logger) {
		l.Trace().Msgf(
			"component graph: %s",
			strings.TrimSpace(components),
		)
	})

	return c.Invoke(func(
		cfg *config.Config,
		l log.Logger,
		t *telemetry.Server,
		col *collector.Collector,
		running *sync.WaitGroup,
		done doneCh,
		errc chan error,
		sig chan os.Signal,
	) error {
		err := config.Validate(cfg)
		if err != nil {
			return err
		}
		if col == nil && t == nil {
			return errors.New("nothing to serve, enable collector or telemetry")
		}

		notified, err := daemon.SdNotify(false, daemon.SdNotifyReady)
		if err != nil {
			return err
		}
		if notified {
			l.Debug().Msg("indicated readiness to systemd")
		}

		if col != nil {
			l.Info().
				Str("path", cfg.Collector.Path).
				Str("sink", cfg.Collector.Sink.Type).
				Msg("collecting beacons")
		}

	loop:
		for {
			select {
			case err := <-errc:
				if err != nil {
					close(done)
					running.Wait()
					return err
				}
			case si := <-sig:
				l.Info().Str("signal", si.String()).Msg("received signal")
				switch si {
				case syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
					close(done)
					break loop
				case syscall.SIGHUP:
				}
			}
		}

		//

		timer := time.AfterFunc(cfg.ShutdownGraceTime, func() {
			l.Warn().
				Dur("graceTime", cfg.ShutdownGraceTime).
				Msg("graceful shutdown timed out")
			os.Exit(1)
		})
		defer timer.Stop()

		running.Wait() // wait for other running components to finish

		return nil
	})
}

//

func RootAction(ctx *cli.Context) error {
	return cli.ShowAppHelp(ctx)
}

//

func NewApp() *cli.App {
	app := &cli.App{}

	app.Name = meta.Name
	app.Usage = "beacon telemetry sender and collector"
	app.Before = Before
	app.Flags = Flags
	app.Action = RootAction
	app.Commands = Commands
	app.Version = meta.Version

	return app
}

func Run() {
	err := NewApp().Run(os.Args)
	if err != nil {
		errors.Fatal(errors.Wrap(
			err, fmt.Sprintf(
				"pid: %d, ppid: %d",
				os.Getpid(), os.Getppid(),
			),
		))
	}
}
