package tidy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tidy-go/internal/metrics"
)

var factory = promauto.With(metrics.Registry)

var (
	plansGenerated = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "tidy_plans_generated_total",
		Help: "Plans generated, by rule.",
	}, []string{"rule"})
	planGenerationDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "tidy_plan_generation_duration_seconds",
		Help:    "Time spent reading the snapshot and generating a plan.",
		Buckets: prometheus.DefBuckets,
	})
	operationsApplied = factory.NewCounter(prometheus.CounterOpts{
		Name: "tidy_operations_applied_total",
		Help: "Move operations that completed during apply.",
	})
	operationsFailed = factory.NewCounter(prometheus.CounterOpts{
		Name: "tidy_operations_failed_total",
		Help: "Move operations that failed during apply.",
	})
	batchesUndone = factory.NewCounter(prometheus.CounterOpts{
		Name: "tidy_batches_undone_total",
		Help: "History batches marked undone.",
	})
	restoreFailures = factory.NewCounter(prometheus.CounterOpts{
		Name: "tidy_restore_failures_total",
		Help: "History entries that could not be moved back during undo.",
	})
	persistenceErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "tidy_persistence_errors_total",
		Help: "History store calls that failed and left the ledger in memory only.",
	}, []string{"op"})
)
