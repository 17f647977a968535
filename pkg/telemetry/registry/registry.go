package registry

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Registry = prometheus.Registry

var DefaultRegistry = New()

// New creates a registry exposing Go runtime and process metrics.
func New() *Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return r
}
