package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "diarscribe"

// Recorder holds the job metrics of one process. It satisfies job.Metrics.
type Recorder struct {
	registry *prometheus.Registry

	jobsSubmitted *prometheus.CounterVec
	jobsFinished  *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	workerLines   *prometheus.CounterVec
	editsApplied  *prometheus.CounterVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		jobsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Transcription jobs accepted, by model profile.",
		}, []string{"profile"}),

		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Terminal job outcomes, by outcome (succeeded or error kind).",
		}, []string{"outcome"}),

		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from submission to terminal outcome.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s → ~68min
		}, []string{"outcome"}),

		workerLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_lines_total",
			Help:      "Lines read from worker output, by kind (progress or log).",
		}, []string{"kind"}),

		editsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_total",
			Help:      "Transcript edit operations committed, by operation.",
		}, []string{"operation"}),
	}

	r.registry.MustRegister(
		r.jobsSubmitted,
		r.jobsFinished,
		r.jobDuration,
		r.workerLines,
		r.editsApplied,
	)
	return r
}

// Registry exposes the underlying registry, e.g. for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) JobSubmitted(profile string) {
	r.jobsSubmitted.WithLabelValues(profile).Inc()
}

func (r *Recorder) JobFinished(outcome string, duration time.Duration) {
	r.jobsFinished.WithLabelValues(outcome).Inc()
	r.jobDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (r *Recorder) WorkerLine(kind string) {
	r.workerLines.WithLabelValues(kind).Inc()
}

// EditApplied counts one committed editor operation.
func (r *Recorder) EditApplied(operation string) {
	r.editsApplied.WithLabelValues(operation).Inc()
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
// The write is atomic, so a collector never sees a partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
