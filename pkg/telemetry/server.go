package telemetry

import (
	"context"

	echo "github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.backbone/corpix/stingray/pkg/log"
	"git.backbone/corpix/stingray/pkg/server"
	"git.backbone/corpix/stingray/pkg/telemetry/registry"
)

const Subsystem = "telemetry"

type Registry = registry.Registry

var DefaultRegistry = registry.DefaultRegistry

// Server exposes the sender and collector metrics for scraping.
type Server struct {
	config Config
	log    log.Logger
	echo   *server.Server
}

func (s *Server) ListenAndServe() error {
	return server.ListenAndServe(s.echo, s.config.Addr, *s.config.Timeout, s.log)
}

func (s *Server) Close() error                       { return s.echo.Close() }
func (s *Server) Shutdown(ctx context.Context) error { return s.echo.Shutdown(ctx) }

func New(c Config, l log.Logger, r *Registry, lr server.Listener) *Server {
	l = l.With().
		Str("component", Subsystem).
		Str("listener", server.ListenerAddr(lr, c.Addr)).
		Logger()

	metrics := promhttp.InstrumentMetricHandler(r, promhttp.HandlerFor(r, promhttp.HandlerOpts{
		ErrorLog:      log.Std(l),
		ErrorHandling: promhttp.ContinueOnError,
	}))

	e := server.New(Subsystem, l, r)
	e.Listener = lr
	e.Use(echomw.BodyLimit("0"))
	e.GET(c.Path, echo.WrapHandler(metrics))

	return &Server{
		config: c,
		log:    l,
		echo:   e,
	}
}
