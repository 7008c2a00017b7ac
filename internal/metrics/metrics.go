// Package metrics exposes Prometheus counters for a ranking run.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stockranker"

// Metrics groups the collectors of one run
type Metrics struct {
	registry *prometheus.Registry

	GroupsTotal       *prometheus.CounterVec
	GroupDuration     prometheus.Histogram
	InstrumentsPriced prometheus.Counter
	DroppedSymbols    prometheus.Gauge
	Instruments       prometheus.Gauge
	RunDuration       prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		GroupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_total",
			Help:      "Fetched groups by outcome",
		}, []string{"outcome"}),
		GroupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "group_fetch_duration_seconds",
			Help:      "Time spent fetching and merging one group",
			Buckets:   prometheus.DefBuckets,
		}),
		InstrumentsPriced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instruments_priced_total",
			Help:      "Instruments whose prices were set",
		}),
		DroppedSymbols: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dropped_symbols",
			Help:      "Trailing symbols not covered by any group",
		}),
		Instruments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instruments",
			Help:      "Instruments in the universe",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
	}

	m.registry.MustRegister(
		m.GroupsTotal,
		m.GroupDuration,
		m.InstrumentsPriced,
		m.DroppedSymbols,
		m.Instruments,
		m.RunDuration,
	)
	return m
}

// ObserveGroup records one completed group
func (m *Metrics) ObserveGroup(outcome string, d time.Duration, priced int) {
	if m == nil {
		return
	}
	m.GroupsTotal.WithLabelValues(outcome).Inc()
	m.GroupDuration.Observe(d.Seconds())
	m.InstrumentsPriced.Add(float64(priced))
}

// ObserveUniverse records the universe size and the symbols left out of every group
func (m *Metrics) ObserveUniverse(instruments, dropped int) {
	if m == nil {
		return
	}
	m.Instruments.Set(float64(instruments))
	m.DroppedSymbols.Set(float64(dropped))
}

// ObserveRun records the wall time of a run
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Set(d.Seconds())
}

// WriteTextfile writes the current values in the text exposition format,
// for pickup by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
