// Package metrics records batch run figures in Prometheus format. A run is
// short-lived, so the registry is written to a textfile for collection by
// node_exporter rather than served over HTTP.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "load_cell_report"

// Metrics holds all Prometheus metrics for one run
type Metrics struct {
	registry *prometheus.Registry

	SeriesProcessed *prometheus.CounterVec
	ReadingsDerived prometheus.Counter
	RowsSkipped     prometheus.Counter
	Intervals       *prometheus.CounterVec
	ChartsWritten   prometheus.Counter
	SeriesDuration  prometheus.Histogram
	LastRunSuccess  prometheus.Gauge
	LastRunSeconds  prometheus.Gauge
}

// New creates a Metrics instance on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SeriesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_processed_total",
			Help:      "Reading series processed, by outcome.",
		}, []string{"status"}),
		ReadingsDerived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_derived_total",
			Help:      "Readings with derived values computed.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "CSV rows skipped because they could not be parsed.",
		}),
		Intervals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomaly_intervals_total",
			Help:      "Anomaly intervals built, by kind.",
		}, []string{"kind"}),
		ChartsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_written_total",
			Help:      "Chart files written.",
		}),
		SeriesDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "series_duration_seconds",
			Help:      "Time to load, derive and export one series.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if every series of the last run succeeded.",
		}),
		LastRunSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	m.registry.MustRegister(
		m.SeriesProcessed,
		m.ReadingsDerived,
		m.RowsSkipped,
		m.Intervals,
		m.ChartsWritten,
		m.SeriesDuration,
		m.LastRunSuccess,
		m.LastRunSeconds,
	)
	return m
}

// ObserveSeries records one series outcome
func (m *Metrics) ObserveSeries(ok bool, duration time.Duration) {
	status := "success"
	if !ok {
		status = "failed"
	}
	m.SeriesProcessed.WithLabelValues(status).Inc()
	m.SeriesDuration.Observe(duration.Seconds())
}

// Finish records the run outcome
func (m *Metrics) Finish(success bool, at time.Time) {
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
	m.LastRunSeconds.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the registry atomically in text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
