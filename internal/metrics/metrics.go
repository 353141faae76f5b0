// SPDX-License-Identifier: MPL-2.0

// Package metrics records gate and task outcomes in a Prometheus registry
// that is written as a node-exporter textfile at the end of a run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/relgate/relgate/internal/taskgraph"
	"github.com/relgate/relgate/internal/violation"
	"github.com/relgate/relgate/pkg/types"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relgate"

// Recorder holds the run metrics.
type Recorder struct {
	registry *prometheus.Registry

	gatePassed     *prometheus.GaugeVec
	violations     *prometheus.GaugeVec
	diffViolations *prometheus.GaugeVec
	taskDuration   *prometheus.GaugeVec
	taskOutcomes   *prometheus.CounterVec
	lastRun        prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		gatePassed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gate_passed",
			Help:      "Whether the module violation gate passed (1) or failed (0).",
		}, []string{"module"}),
		violations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gate_violations",
			Help:      "Findings at or above the severity floor, per module and tool.",
		}, []string{"module", "tool"}),
		diffViolations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gate_diff_violations",
			Help:      "Findings located in files of the current changeset.",
		}, []string{"module"}),
		taskDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of each executed task.",
		}, []string{"task"}),
		taskOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Tasks by terminal outcome.",
		}, []string{"outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}
	r.registry.MustRegister(r.gatePassed, r.violations, r.diffViolations, r.taskDuration, r.taskOutcomes, r.lastRun)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveGate records one evaluated gate.
func (r *Recorder) ObserveGate(m types.ModuleName, res violation.GateResult) {
	passed := 0.0
	if res.Pass {
		passed = 1
	}
	r.gatePassed.WithLabelValues(m.String()).Set(passed)
	r.diffViolations.WithLabelValues(m.String()).Set(float64(res.DiffCount))
	for _, src := range violation.DefaultSources() {
		r.violations.WithLabelValues(m.String(), string(src.Kind)).Set(0)
	}
	for kind, n := range res.ByTool {
		r.violations.WithLabelValues(m.String(), string(kind)).Set(float64(n))
	}
}

// ObserveTask records one task result.
func (r *Recorder) ObserveTask(res taskgraph.TaskResult) {
	r.taskOutcomes.WithLabelValues(res.Outcome.String()).Inc()
	if res.Outcome == taskgraph.OutcomeSuccess || res.Outcome == taskgraph.OutcomeFailed {
		r.taskDuration.WithLabelValues(res.Ref.String()).Set(res.Duration.Seconds())
	}
}

// WriteTextfile stamps the run time and writes the registry to path.
func (r *Recorder) WriteTextfile(path string, now time.Time) error {
	r.lastRun.Set(float64(now.Unix()))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
