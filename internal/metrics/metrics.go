package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"threatsync/pkg/models"
)

const namespace = "threatsync"

// Recorder collects per-run synchronization metrics. A nil Recorder is valid
// and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	operations      *prometheus.CounterVec
	skippedTargets  prometheus.Counter
	vulnerabilities prometheus.Counter
	lastRun         prometheus.Gauge
	lastSuccess     prometheus.Gauge
	duration        prometheus.Gauge
}

// NewRecorder creates a recorder backed by its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Graph operations produced, by category, type and operation.",
		}, []string{"category", "type", "op"}),
		skippedTargets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_targets_total",
			Help:      "Vulnerable-server references naming an agent not in the current agent set.",
		}),
		vulnerabilities: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vulnerabilities_processed_total",
			Help:      "Vulnerability records joined against agents.",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run completed without error.",
		}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
}

// ObserveOperations adds a step's operation counts.
func (r *Recorder) ObserveOperations(category, graphType string, s models.OperationsSummary) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(category, graphType, string(models.OperationCreate)).Add(float64(s.Created))
	r.operations.WithLabelValues(category, graphType, string(models.OperationUpdate)).Add(float64(s.Updated))
	r.operations.WithLabelValues(category, graphType, string(models.OperationDelete)).Add(float64(s.Deleted))
}

// ObserveFanout records vulnerability join counters.
func (r *Recorder) ObserveFanout(vulnerabilities, skippedTargets int) {
	if r == nil {
		return
	}
	r.vulnerabilities.Add(float64(vulnerabilities))
	r.skippedTargets.Add(float64(skippedTargets))
}

// ObserveRun records completion of a run started at start.
func (r *Recorder) ObserveRun(start time.Time, err error) {
	if r == nil {
		return
	}
	now := time.Now()
	r.lastRun.Set(float64(now.Unix()))
	r.duration.Set(now.Sub(start).Seconds())
	if err != nil {
		r.lastSuccess.Set(0)
		return
	}
	r.lastSuccess.Set(1)
}

// WriteTextfile writes all metrics in the text exposition format, for
// collection by a node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
