package beacon

import (
	"git.backbone/corpix/stingray/pkg/telemetry/collector"
)

const Subsystem = "sender"

type metrics struct {
	written   collector.Counter
	oversized collector.Counter
	failed    collector.Counter
}

func counter(r collector.Registerer, name string, help string) (collector.Counter, error) {
	c, err := collector.Register(r, collector.NewCounter(collector.CounterOpts{
		Name: collector.Name(Subsystem, name),
		Help: help,
	}))
	if err != nil {
		return nil, err
	}
	return c.(collector.Counter), nil
}

func newMetrics(r collector.Registerer) (*metrics, error) {
	var (
		m   = &metrics{}
		err error
	)

	m.written, err = counter(r, "written_total", "Beacons dispatched to the delivery capability")
	if err != nil {
		return nil, err
	}
	m.oversized, err = counter(r, "oversized_total", "Beacons dropped because the URL exceeded the limit")
	if err != nil {
		return nil, err
	}
	m.failed, err = counter(r, "failed_total", "Beacons which failed or timed out during delivery")
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metrics) write() {
	if m != nil {
		m.written.Inc()
	}
}

func (m *metrics) oversize() {
	if m != nil {
		m.oversized.Inc()
	}
}

func (m *metrics) fail() {
	if m != nil {
		m.failed.Inc()
	}
}
