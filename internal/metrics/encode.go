// Package metrics provides Prometheus metrics for encode runs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "enctests"

// Recorder collects per-test encode metrics into its own registry.
// It is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	encodeSeconds *prometheus.HistogramVec
	outputBytes   *prometheus.GaugeVec
	failures      *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	lastRun       prometheus.Gauge

	// Local totals for the end of run summary.
	totals   map[string]*TestTotals
	totalsMu sync.RWMutex
}

// TestTotals holds the running totals for one test.
type TestTotals struct {
	Encoded       int
	Failed        int
	Skipped       int
	EncodeSeconds float64
	OutputBytes   int64
}

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		encodeSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "encode",
			Name:      "duration_seconds",
			Help:      "Wall clock time of a single encode",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"test", "tool_version"}),
		outputBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "encode",
			Name:      "output_bytes",
			Help:      "Size of the last encoded output",
		}, []string{"clip", "test"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "encode",
			Name:      "failures_total",
			Help:      "Encodes that exited with an error",
		}, []string{"test"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "encode",
			Name:      "skipped_total",
			Help:      "Encodes skipped because a current result exists",
		}, []string{"test"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		totals: make(map[string]*TestTotals),
	}
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveEncode records a successful encode.
func (r *Recorder) ObserveEncode(clip, test, toolVersion string, seconds float64, bytes int64) {
	r.encodeSeconds.WithLabelValues(test, toolVersion).Observe(seconds)
	r.outputBytes.WithLabelValues(clip, test).Set(float64(bytes))
	r.update(test, func(t *TestTotals) {
		t.Encoded++
		t.EncodeSeconds += seconds
		t.OutputBytes += bytes
	})
}

// ObserveFailure records a failed encode.
func (r *Recorder) ObserveFailure(_, test string) {
	r.failures.WithLabelValues(test).Inc()
	r.update(test, func(t *TestTotals) { t.Failed++ })
}

// ObserveSkip records a skipped encode.
func (r *Recorder) ObserveSkip(_, test string) {
	r.skipped.WithLabelValues(test).Inc()
	r.update(test, func(t *TestTotals) { t.Skipped++ })
}

// MarkRunFinished stamps the last run gauge with the given unix time.
func (r *Recorder) MarkRunFinished(unix float64) {
	r.lastRun.Set(unix)
}

// Totals returns a copy of the totals for a test, or nil if nothing was recorded.
func (r *Recorder) Totals(test string) *TestTotals {
	r.totalsMu.RLock()
	defer r.totalsMu.RUnlock()
	t, ok := r.totals[test]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// AllTotals returns a copy of the totals of every test.
func (r *Recorder) AllTotals() map[string]TestTotals {
	r.totalsMu.RLock()
	defer r.totalsMu.RUnlock()
	out := make(map[string]TestTotals, len(r.totals))
	for k, v := range r.totals {
		out[k] = *v
	}
	return out
}

func (r *Recorder) update(test string, fn func(*TestTotals)) {
	r.totalsMu.Lock()
	defer r.totalsMu.Unlock()
	t, ok := r.totals[test]
	if !ok {
		t = &TestTotals{}
		r.totals[test] = t
	}
	fn(t)
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
