// Package metrics records a run's step timings for the node_exporter
// textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects step metrics for one run.
type Recorder struct {
	registry     *prometheus.Registry
	stepDuration *prometheus.GaugeVec
	stepResults  *prometheus.CounterVec
	lastRun      *prometheus.GaugeVec
}

// NewRecorder returns a Recorder with its own registry.
func NewRecorder(project string) *Recorder {
	constLabels := prometheus.Labels{"project": project}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "dockship",
			Name:        "step_duration_seconds",
			Help:        "Wall time of each pipeline step in the last run",
			ConstLabels: constLabels,
		}, []string{"step"}),
		stepResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "dockship",
			Name:        "step_results_total",
			Help:        "Pipeline step outcomes in the last run",
			ConstLabels: constLabels,
		}, []string{"step", "outcome"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "dockship",
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the last run finished",
			ConstLabels: constLabels,
		}, []string{"mode", "outcome"}),
	}
	r.registry.MustRegister(r.stepDuration, r.stepResults, r.lastRun)
	return r
}

// ObserveStep records one step.
func (r *Recorder) ObserveStep(step, outcome string, d time.Duration) {
	r.stepDuration.WithLabelValues(step).Set(d.Seconds())
	r.stepResults.WithLabelValues(step, outcome).Inc()
}

// Finish records the run outcome.
func (r *Recorder) Finish(mode, outcome string, at time.Time) {
	r.lastRun.WithLabelValues(mode, outcome).Set(float64(at.Unix()))
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteFile writes the metrics in text format, atomically.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
