// Package metrics records how long pipeline steps take and how targets end.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Target outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder receives pipeline observations.
type Recorder interface {
	// ObserveStep records one finished step of a target pipeline.
	ObserveStep(target, step string, duration time.Duration, err error)
	// ObserveTarget records the final outcome of a target pipeline.
	ObserveTarget(target string, duration time.Duration, err error)
	// ObserveArtifact records one produced artifact.
	ObserveArtifact(target, kind string, size int64)
}

// PrometheusRecorder implements Recorder on its own registry.
type PrometheusRecorder struct {
	registry       *prometheus.Registry
	stepDuration   *prometheus.HistogramVec
	targetDuration *prometheus.HistogramVec
	targetsTotal   *prometheus.CounterVec
	artifactBytes  *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder with a fresh registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	var (
		registry = prometheus.NewRegistry()
		factory  = promauto.With(registry)
	)

	return &PrometheusRecorder{
		registry: registry,
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nwjs_packager_step_duration_seconds",
				Help:    "Duration of pipeline steps by target, step and status",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"target", "step", "status"},
		),
		targetDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nwjs_packager_target_duration_seconds",
				Help:    "Duration of complete target pipelines",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
			[]string{"target"},
		),
		targetsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nwjs_packager_targets_total",
				Help: "Number of packaged targets by outcome",
			},
			[]string{"target", "outcome"},
		),
		artifactBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nwjs_packager_artifact_bytes_total",
				Help: "Size of produced artifacts in bytes",
			},
			[]string{"target", "kind"},
		),
	}
}

// ObserveStep implements Recorder.
func (p *PrometheusRecorder) ObserveStep(target, step string, duration time.Duration, err error) {
	p.stepDuration.WithLabelValues(target, step, outcome(err)).Observe(duration.Seconds())
}

// ObserveTarget implements Recorder.
func (p *PrometheusRecorder) ObserveTarget(target string, duration time.Duration, err error) {
	p.targetDuration.WithLabelValues(target).Observe(duration.Seconds())
	p.targetsTotal.WithLabelValues(target, outcome(err)).Inc()
}

// ObserveArtifact implements Recorder.
func (p *PrometheusRecorder) ObserveArtifact(target, kind string, size int64) {
	p.artifactBytes.WithLabelValues(target, kind).Add(float64(size))
}

// Gatherer exposes the registry.
func (p *PrometheusRecorder) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile writes the metrics in text exposition format, for example for
// the node_exporter textfile collector.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}

	return OutcomeSuccess
}

// Noop discards observations.
type Noop struct{}

// ObserveStep implements Recorder.
func (Noop) ObserveStep(string, string, time.Duration, error) {}

// ObserveTarget implements Recorder.
func (Noop) ObserveTarget(string, time.Duration, error) {}

// ObserveArtifact implements Recorder.
func (Noop) ObserveArtifact(string, string, int64) {}
