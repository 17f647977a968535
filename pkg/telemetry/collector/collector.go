package collector

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"git.backbone/corpix/stingray/pkg/errors"
	"git.backbone/corpix/stingray/pkg/meta"
)

var (
	NewCounter      = prometheus.NewCounter
	NewCounterVec   = prometheus.NewCounterVec
	NewGauge        = prometheus.NewGauge
	NewGaugeVec     = prometheus.NewGaugeVec
	NewHistogram    = prometheus.NewHistogram
	NewHistogramVec = prometheus.NewHistogramVec
)

type (
	Collector  = prometheus.Collector
	Registerer = prometheus.Registerer

	Counter     = prometheus.Counter
	CounterVec  = prometheus.CounterVec
	CounterOpts = prometheus.CounterOpts

	Gauge     = prometheus.Gauge
	GaugeVec  = prometheus.GaugeVec
	GaugeOpts = prometheus.GaugeOpts

	Histogram     = prometheus.Histogram
	HistogramVec  = prometheus.HistogramVec
	HistogramOpts = prometheus.HistogramOpts

	Labels = prometheus.Labels
)

func Name(subsystem string, name string, rest ...string) string {
	return strings.Join(
		append(
			[]string{meta.TelemetryNamespace, subsystem, name},
			rest...,
		),
		"_",
	)
}

// Register registers c, returning the collector which was registered
// before under the same descriptor if there is one.
func Register(r Registerer, c Collector) (Collector, error) {
	err := r.Register(c)
	if err != nil {
		are := prometheus.AlreadyRegisteredError{}
		if errors.As(err, &are) {
			return are.ExistingCollector, nil
		}
		return nil, errors.Wrap(err, "failed to register collector")
	}
	return c, nil
}
