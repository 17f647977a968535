package collector

import (
	"context"
	"net/http"

	"git.backbone/corpix/stingray/pkg/beacon"
	"git.backbone/corpix/stingray/pkg/log"
	"git.backbone/corpix/stingray/pkg/server"
	"git.backbone/corpix/stingray/pkg/server/middleware"
	metrics "git.backbone/corpix/stingray/pkg/telemetry/collector"
	"git.backbone/corpix/stingray/pkg/telemetry/registry"
)

const Subsystem = "collector"

type Listener = server.Listener

// Collector is an HTTP server receiving beacons on a single path.
type Collector struct {
	config Config
	log    log.Logger
	srv    *server.Server
	sink   Sink

	hits       metrics.Counter
	sinkErrors metrics.Counter
}

func (c *Collector) Handle(query beacon.Query, req *http.Request) error {
	hit := NewHit(query, req)
	c.hits.Inc()

	err := c.sink.Write(req.Context(), hit)
	if err != nil {
		c.sinkErrors.Inc()
		return server.NewError(
			http.StatusInternalServerError, err,
			map[string]interface{}{"hit": hit.ID},
		)
	}

	return nil
}

func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.srv.ServeHTTP(w, r)
}

func (c *Collector) ListenAndServe() error {
	return server.ListenAndServe(c.srv, c.config.Addr, *c.config.Timeout, c.log)
}

func (c *Collector) Close() error {
	err := c.srv.Close()
	if err != nil {
		return err
	}
	return c.sink.Close()
}

func (c *Collector) Shutdown(ctx context.Context) error {
	err := c.srv.Shutdown(ctx)
	if err != nil {
		return err
	}
	return c.sink.Close()
}

func counter(r metrics.Registerer, name string, help string) (metrics.Counter, error) {
	c, err := metrics.Register(r, metrics.NewCounter(metrics.CounterOpts{
		Name: metrics.Name(Subsystem, name),
		Help: help,
	}))
	if err != nil {
		return nil, err
	}
	return c.(metrics.Counter), nil
}

func New(c Config, l log.Logger, r *registry.Registry, lr Listener, sink Sink) (*Collector, error) {
	l = l.With().
		Str("component", Subsystem).
		Str("listener", server.ListenerAddr(lr, c.Addr)).
		Logger()

	hits, err := counter(r, "hits_total", "Beacon hits received")
	if err != nil {
		return nil, err
	}
	sinkErrors, err := counter(r, "sink_errors_total", "Beacon hits which could not be stored")
	if err != nil {
		return nil, err
	}

	e := server.New(Subsystem, l, r)
	e.Listener = lr

	col := &Collector{
		config:     c,
		log:        l,
		srv:        e,
		sink:       sink,
		hits:       hits,
		sinkErrors: sinkErrors,
	}

	e.Use(middleware.NewBeacon(c.Path, col.Handle))

	return col, nil
}
