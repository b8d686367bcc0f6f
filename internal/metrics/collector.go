// Package metrics exposes pipeline counters and timings to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records task, stage and repair metrics
type Collector struct {
	tasksTotal     *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	repairSteps    *prometheus.CounterVec
	printable      *prometheus.CounterVec
	generatorUsed  *prometheus.CounterVec
	evictedFiles   prometheus.Counter
	evictedBytes   prometheus.Counter
	outputDirBytes prometheus.Gauge

	logger *zap.Logger
}

// NewCollector registers the metrics on reg. Pass prometheus.DefaultRegisterer
// for the process-wide registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.tasksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of processed tasks",
		},
		[]string{"status"},
	)

	c.stageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	c.repairSteps = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_steps_total",
			Help:      "Repair steps by outcome",
		},
		[]string{"step", "outcome"}, // outcome: applied, skipped, failed
	)

	c.printable = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "printability_checks_total",
			Help:      "Printability checks by verdict",
		},
		[]string{"printable"},
	)

	c.generatorUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_runs_total",
			Help:      "Model generator runs by generator and status",
		},
		[]string{"generator", "status"},
	)

	c.evictedFiles = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_evicted_files_total",
		Help:      "Files removed by the storage janitor",
	})

	c.evictedBytes = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_evicted_bytes_total",
		Help:      "Bytes removed by the storage janitor",
	})

	c.outputDirBytes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "storage_bytes",
		Help:      "Size of the output directory after the last sweep",
	})

	return c
}

// RecordTask counts a finished task; status is "success" or "error"
func (c *Collector) RecordTask(status string) {
	c.tasksTotal.WithLabelValues(status).Inc()
}

// ObserveStage records how long one pipeline stage took
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRepairStep counts one repair step outcome
func (c *Collector) RecordRepairStep(step, outcome string) {
	c.repairSteps.WithLabelValues(step, outcome).Inc()
}

// RecordCheck counts one printability verdict
func (c *Collector) RecordCheck(printable bool) {
	label := "false"
	if printable {
		label = "true"
	}
	c.printable.WithLabelValues(label).Inc()
}

// RecordGenerator counts one generator run
func (c *Collector) RecordGenerator(name, status string) {
	c.generatorUsed.WithLabelValues(name, status).Inc()
}

// RecordSweep records a janitor pass
func (c *Collector) RecordSweep(files int, bytes, remaining int64) {
	c.evictedFiles.Add(float64(files))
	c.evictedBytes.Add(float64(bytes))
	c.outputDirBytes.Set(float64(remaining))
	if files > 0 {
		c.logger.Debug("storage sweep recorded",
			zap.Int("files", files),
			zap.Int64("bytes", bytes),
			zap.Int64("remaining", remaining))
	}
}
