package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-lms/backend/internal/models"
	"github.com/atelier-lms/backend/pkg/metrics"
)

// TenantRegistry is the registry surface provisioning needs.
type TenantRegistry interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next models.TenantStatus, lastError *string) error
}

// Provisioner creates a tenant's isolated schema and brings it to the
// baseline. Provision is idempotent and resumable: every run re-derives
// what is left to do from the schema's own version table, so an interrupted
// run retried later continues where it stopped instead of restarting.
type Provisioner struct {
	manager  SchemaManager
	registry TenantRegistry
	source   *Source
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewProvisioner creates a schema provisioner.
func NewProvisioner(manager SchemaManager, registry TenantRegistry, source *Source, m *metrics.Metrics, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{manager: manager, registry: registry, source: source, metrics: m, logger: logger}
}

// Provision runs the provisioning state machine for one tenant: create the
// schema if absent, replay the baseline migration set, and only then mark
// the tenant active. Any failure leaves the tenant in provision_failed with
// the cause recorded on the registry row; the tenant is never exposed as
// active with an incomplete schema.
func (p *Provisioner) Provision(ctx context.Context, tenantID uuid.UUID) error {
	start := time.Now()
	outcome, err := p.provision(ctx, tenantID)
	if p.metrics != nil {
		p.metrics.ProvisionsTotal.WithLabelValues(outcome).Inc()
		p.metrics.ProvisionDuration.Observe(time.Since(start).Seconds())
	}
	return err
}

func (p *Provisioner) provision(ctx context.Context, tenantID uuid.UUID) (string, error) {
	tenant, err := p.registry.Get(ctx, tenantID)
	if err != nil {
		return "failure", err
	}

	switch tenant.Status {
	case models.TenantStatusActive:
		// Retried job for an already-provisioned tenant.
		return "noop", nil
	case models.TenantStatusPendingProvision, models.TenantStatusProvisionFailed:
	default:
		return "failure", fmt.Errorf("tenant %s is %s, not provisionable", tenant.Slug, tenant.Status)
	}

	p.logger.Info("provisioning tenant schema",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("schema", tenant.SchemaName),
	)

	if err := p.run(ctx, tenant); err != nil {
		msg := err.Error()
		if uerr := p.registry.UpdateStatus(ctx, tenant.ID, models.TenantStatusProvisionFailed, &msg); uerr != nil {
			p.logger.Error("recording provisioning failure", zap.String("tenant_id", tenant.ID.String()), zap.Error(uerr))
		}
		return "failure", fmt.Errorf("%w: tenant %s: %v", ErrSchemaProvisioningFailed, tenant.Slug, err)
	}

	if err := p.registry.UpdateStatus(ctx, tenant.ID, models.TenantStatusActive, nil); err != nil {
		return "failure", fmt.Errorf("activate tenant %s: %w", tenant.Slug, err)
	}

	p.logger.Info("tenant provisioned",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("schema", tenant.SchemaName),
	)
	return "success", nil
}

func (p *Provisioner) run(ctx context.Context, tenant *models.Tenant) error {
	if err := p.manager.EnsureSchema(ctx, tenant.SchemaName); err != nil {
		return err
	}
	last, err := p.manager.Apply(ctx, tenant.SchemaName, p.source.Tenant())
	if err != nil {
		p.logger.Warn("baseline replay interrupted",
			zap.String("schema", tenant.SchemaName),
			zap.Int("last_applied", last),
			zap.Error(err),
		)
		return err
	}
	return nil
}
