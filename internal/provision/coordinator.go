package provision

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/atelier-lms/backend/internal/models"
	"github.com/atelier-lms/backend/pkg/metrics"
	"github.com/atelier-lms/backend/pkg/workerpool"
)

// TenantLister is the registry surface the coordinator needs.
type TenantLister interface {
	List(ctx context.Context, includeDeleted bool) ([]*models.Tenant, error)
}

// SchemaResult reports one schema's outcome from a coordinated run.
type SchemaResult struct {
	Schema      string `json:"schema"`
	LastVersion int    `json:"last_version"`
	Error       string `json:"error,omitempty"`
	Skipped     bool   `json:"skipped,omitempty"`
}

// Report is the full outcome of ApplyPending: operators can read off
// exactly which schemas are behind and at which version they stopped.
type Report struct {
	Shared     SchemaResult   `json:"shared"`
	Tenants    []SchemaResult `json:"tenants"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Failed reports whether any schema in the run ended in error.
func (r *Report) Failed() bool {
	if r.Shared.Error != "" {
		return true
	}
	for _, t := range r.Tenants {
		if t.Error != "" {
			return true
		}
	}
	return false
}

// Coordinator applies pending migrations to the shared namespace and to
// every non-deleted tenant schema. Schemas are independent units of work:
// the fan-out is parallel across tenants, while each schema's sequence is
// owned end-to-end by a single worker in strict version order.
type Coordinator struct {
	manager  SchemaManager
	registry TenantLister
	source   *Source
	width    int
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewCoordinator creates a migration coordinator with the given fan-out width.
func NewCoordinator(manager SchemaManager, registry TenantLister, source *Source, width int, m *metrics.Metrics, logger *zap.Logger) *Coordinator {
	if width <= 0 {
		width = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{manager: manager, registry: registry, source: source, width: width, metrics: m, logger: logger}
}

// ApplyShared migrates only the shared registry namespace. Run at server
// startup so the tenants table exists before any request is served.
func (c *Coordinator) ApplyShared(ctx context.Context) (SchemaResult, error) {
	res := SchemaResult{Schema: "public"}
	last, err := c.manager.Apply(ctx, "public", c.source.Shared())
	res.LastVersion = last
	if err != nil {
		res.Error = err.Error()
		return res, fmt.Errorf("%w: shared schema: %v", ErrMigrationFailed, err)
	}
	return res, nil
}

// ApplyPending migrates the shared schema, then fans out across all tenant
// schemas known to the registry (deleted tenants excluded). A failure in one
// schema never rolls back others; it halts scheduling of further schemas and
// the report records where every schema stands. In-flight schemas run to
// completion so none is abandoned mid-sequence.
func (c *Coordinator) ApplyPending(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now()}

	shared, err := c.ApplyShared(ctx)
	report.Shared = shared
	if err != nil {
		report.FinishedAt = time.Now()
		c.observe(report)
		return report, err
	}

	tenants, err := c.registry.List(ctx, false)
	if err != nil {
		report.FinishedAt = time.Now()
		return report, fmt.Errorf("list tenants: %w", err)
	}

	report.Tenants = make([]SchemaResult, len(tenants))

	pool := workerpool.New(workerpool.Config{
		Name:      "schema-migration",
		Workers:   c.width,
		QueueSize: len(tenants) + 1,
		Logger:    c.logger,
	})
	defer func() { _ = pool.Stop(time.Minute) }()

	var (
		wg     sync.WaitGroup
		halted atomic.Bool
	)
	for i, tenant := range tenants {
		i, tenant := i, tenant
		wg.Add(1)
		task := workerpool.Task{
			ID: tenant.SchemaName,
			Fn: func(taskCtx context.Context) error {
				defer wg.Done()
				report.Tenants[i] = c.migrateTenant(ctx, tenant, &halted)
				if report.Tenants[i].Error != "" {
					return fmt.Errorf("%s: %s", tenant.SchemaName, report.Tenants[i].Error)
				}
				return nil
			},
		}
		if err := pool.Submit(ctx, task); err != nil {
			wg.Done()
			report.Tenants[i] = SchemaResult{Schema: tenant.SchemaName, Skipped: true, Error: err.Error()}
		}
	}
	wg.Wait()

	report.FinishedAt = time.Now()
	c.observe(report)

	if report.Failed() {
		return report, fmt.Errorf("%w: %d of %d tenant schemas behind", ErrMigrationFailed, countFailed(report.Tenants), len(tenants))
	}
	c.logger.Info("coordinated migration complete",
		zap.Int("tenant_schemas", len(tenants)),
		zap.Int("shared_version", report.Shared.LastVersion),
	)
	return report, nil
}

func (c *Coordinator) migrateTenant(ctx context.Context, tenant *models.Tenant, halted *atomic.Bool) SchemaResult {
	res := SchemaResult{Schema: tenant.SchemaName}
	if halted.Load() {
		res.Skipped = true
		return res
	}

	// Tenants whose provisioning never completed have no schema yet; the
	// provisioner, not the coordinator, owns bringing them to baseline.
	if tenant.Status == models.TenantStatusPendingProvision || tenant.Status == models.TenantStatusProvisionFailed {
		res.Skipped = true
		return res
	}

	last, err := c.manager.Apply(ctx, tenant.SchemaName, c.source.Tenant())
	res.LastVersion = last
	if err != nil {
		res.Error = err.Error()
		halted.Store(true)
		c.logger.Error("tenant schema migration failed",
			zap.String("schema", tenant.SchemaName),
			zap.Int("last_applied", last),
			zap.Error(err),
		)
	}
	return res
}

func (c *Coordinator) observe(report *Report) {
	if c.metrics == nil {
		return
	}
	for _, t := range report.Tenants {
		switch {
		case t.Skipped:
			c.metrics.MigrationSchemasTotal.WithLabelValues("skipped").Inc()
		case t.Error != "":
			c.metrics.MigrationSchemasTotal.WithLabelValues("failed").Inc()
		default:
			c.metrics.MigrationSchemasTotal.WithLabelValues("migrated").Inc()
		}
	}
}

func countFailed(results []SchemaResult) int {
	n := 0
	for _, r := range results {
		if r.Error != "" {
			n++
		}
	}
	return n
}
