// Package telemetry records per-run metrics and writes them in the Prometheus
// text exposition format, for collection through a node-exporter textfile
// directory.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the gauges for a single run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	reg        *prometheus.Registry
	processing prometheus.Gauge
	attempts   prometheus.Gauge
	stages     *prometheus.GaugeVec
	success    prometheus.Gauge
	lastRun    prometheus.Gauge
}

// NewRecorder creates a recorder labelled with the transform mode.
func NewRecorder(mode string) *Recorder {
	labels := prometheus.Labels{"type": mode}
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		processing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "image_transform_processing_seconds",
			Help:        "Reported processing time of the last run, including pacing.",
			ConstLabels: labels,
		}),
		attempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "image_transform_fetch_attempts",
			Help:        "Download attempts made by the last run (0 for local input).",
			ConstLabels: labels,
		}),
		stages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "image_transform_stage_seconds",
			Help:        "Wall-clock time spent in each pipeline stage of the last run.",
			ConstLabels: labels,
		}, []string{"stage"}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "image_transform_last_success",
			Help:        "1 if the last run succeeded, 0 otherwise.",
			ConstLabels: labels,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "image_transform_last_run_timestamp_seconds",
			Help:        "Unix time the last run finished.",
			ConstLabels: labels,
		}),
	}
	r.reg.MustRegister(r.processing, r.attempts, r.stages, r.success, r.lastRun)
	return r
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stages.WithLabelValues(stage).Set(d.Seconds())
}

func (r *Recorder) SetFetchAttempts(n int) {
	if r == nil {
		return
	}
	r.attempts.Set(float64(n))
}

func (r *Recorder) SetProcessingTime(seconds float64) {
	if r == nil {
		return
	}
	r.processing.Set(seconds)
}

// Finish records the outcome and completion time of the run.
func (r *Recorder) Finish(ok bool, at time.Time) {
	if r == nil {
		return
	}
	if ok {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
	r.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes the metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
