// Package metrics exposes Prometheus instrumentation for the tenancy core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the tenancy core.
type Metrics struct {
	// Tenant resolution
	ResolutionsTotal   *prometheus.CounterVec // result: hit, miss, rejected
	ResolutionDuration prometheus.Histogram

	// Provisioning
	ProvisionsTotal   *prometheus.CounterVec // outcome: success, failure, noop
	ProvisionDuration prometheus.Histogram

	// Coordinated migrations
	MigrationStepsTotal   *prometheus.CounterVec // outcome: applied, failed
	MigrationSchemasTotal *prometheus.CounterVec // outcome: migrated, failed, skipped
}

// New creates and registers all metrics on reg (use prometheus.DefaultRegisterer
// in the binaries, a fresh registry in tests).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenancy_resolutions_total",
				Help: "Total tenant resolutions by result",
			},
			[]string{"result"},
		),
		ResolutionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tenancy_resolution_duration_seconds",
				Help:    "Duration of tenant resolution including registry lookups",
				Buckets: prometheus.DefBuckets,
			},
		),
		ProvisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenancy_provisions_total",
				Help: "Total tenant schema provisioning runs by outcome",
			},
			[]string{"outcome"},
		),
		ProvisionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tenancy_provision_duration_seconds",
				Help:    "Duration of tenant schema provisioning",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		MigrationStepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenancy_migration_steps_total",
				Help: "Individual migration steps by outcome",
			},
			[]string{"outcome"},
		),
		MigrationSchemasTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenancy_migration_schemas_total",
				Help: "Schemas handled by coordinated migration runs, by outcome",
			},
			[]string{"outcome"},
		),
	}
}
