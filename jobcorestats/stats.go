// Package jobcorestats is a minimal façade over rcrowley/go-metrics. It
// keeps the Counter/Gauge/Latency instruments and the StatsReceiver
// scoping idea, but drops JSON rendering, latched snapshotting, and any
// HTTP admin-endpoint machinery: this module exposes no wire surface, so
// there is nothing to render to. JobManager and SessionManager record
// counters, gauges, and latencies through this interface.
package jobcorestats

import (
	"strings"
	"time"

	"github.com/rcrowley/go-metrics"
)

// StatsReceiver provides scoped counters, gauges, and latencies.
type StatsReceiver interface {
	// Scope returns a receiver that namespaces every instrument name it
	// creates with the given path elements.
	Scope(scope ...string) StatsReceiver

	// Counter returns (creating if necessary) a monotonic counter.
	Counter(name ...string) Counter

	// Gauge returns (creating if necessary) an arbitrarily-settable
	// integer gauge.
	Gauge(name ...string) Gauge

	// Latency returns (creating if necessary) a latency histogram.
	Latency(name ...string) Latency
}

// Counter is an event counter.
type Counter interface {
	Inc(int64)
	Count() int64
}

// Gauge holds an int64 value that can be set arbitrarily.
type Gauge interface {
	Update(int64)
	Value() int64
}

// Latency records a duration histogram; Time starts a measurement and
// returns itself so callers can defer Stop():
//
//	defer stat.Latency("dispatch_ms").Time().Stop()
type Latency interface {
	Time() Latency
	Stop()
}

type receiver struct {
	registry metrics.Registry
	scope    []string
}

// NewStatsReceiver constructs a StatsReceiver backed by a fresh
// go-metrics registry.
func NewStatsReceiver() StatsReceiver {
	return &receiver{registry: metrics.NewRegistry()}
}

// NilStatsReceiver returns a StatsReceiver whose instruments discard
// every update; used as the default when a caller passes no receiver.
func NilStatsReceiver() StatsReceiver { return nilReceiver{} }

func (r *receiver) Scope(scope ...string) StatsReceiver {
	return &receiver{registry: r.registry, scope: append(append([]string{}, r.scope...), scope...)}
}

func (r *receiver) name(parts ...string) string {
	return strings.Join(append(append([]string{}, r.scope...), parts...), "/")
}

func (r *receiver) Counter(name ...string) Counter {
	return r.registry.GetOrRegister(r.name(name...), metrics.NewCounter).(metrics.Counter)
}

func (r *receiver) Gauge(name ...string) Gauge {
	return r.registry.GetOrRegister(r.name(name...), metrics.NewGauge).(metrics.Gauge)
}

func (r *receiver) Latency(name ...string) Latency {
	h := r.registry.GetOrRegister(r.name(name...), func() metrics.Histogram {
		return metrics.NewHistogram(metrics.NewUniformSample(1000))
	}).(metrics.Histogram)
	return &latency{h: h}
}

type latency struct {
	h     metrics.Histogram
	start time.Time
}

func (l *latency) Time() Latency {
	l.start = time.Now()
	return l
}

func (l *latency) Stop() {
	l.h.Update(int64(time.Since(l.start)))
}

type nilReceiver struct{}

func (nilReceiver) Scope(scope ...string) StatsReceiver { return nilReceiver{} }
func (nilReceiver) Counter(name ...string) Counter      { return nilCounter{} }
func (nilReceiver) Gauge(name ...string) Gauge          { return nilGauge{} }
func (nilReceiver) Latency(name ...string) Latency      { return nilLatency{} }

type nilCounter struct{}

func (nilCounter) Inc(int64)    {}
func (nilCounter) Count() int64 { return 0 }

type nilGauge struct{}

func (nilGauge) Update(int64) {}
func (nilGauge) Value() int64 { return 0 }

type nilLatency struct{}

func (nilLatency) Time() Latency { return nilLatency{} }
func (nilLatency) Stop()         {}
