package tenancy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-lms/backend/internal/models"
	"github.com/atelier-lms/backend/pkg/metrics"
)

// TenantGetter is the registry surface the resolver needs.
type TenantGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// Resolver turns an inbound tenant identifier into a Tenant record, or a
// client-facing error before any data-plane work begins. It performs no
// database writes.
type Resolver struct {
	registry TenantGetter
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewResolver creates a resolver over the registry.
func NewResolver(registry TenantGetter, m *metrics.Metrics, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{registry: registry, metrics: m, logger: logger}
}

// Resolve validates the raw header value, looks up the tenant, and enforces
// status: only active tenants may serve data traffic. A tenant whose record
// exists but is suspended or inactive is rejected with a distinct error.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*models.Tenant, error) {
	start := time.Now()
	tenant, err := r.resolve(ctx, raw)
	if r.metrics != nil {
		r.metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			r.metrics.ResolutionsTotal.WithLabelValues("rejected").Inc()
		}
	}
	return tenant, err
}

func (r *Resolver) resolve(ctx context.Context, raw string) (*models.Tenant, error) {
	if raw == "" {
		return nil, ErrMissingTenantHeader
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrInvalidTenantID
	}

	tenant, err := r.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch tenant.Status {
	case models.TenantStatusActive:
		return tenant, nil
	case models.TenantStatusSuspended:
		return nil, ErrTenantSuspended
	case models.TenantStatusInactive:
		return nil, ErrTenantInactive
	case models.TenantStatusDeleted:
		// A deleted tenant is indistinguishable from an absent one.
		return nil, ErrTenantNotFound
	default:
		// pending_provision or provision_failed: record exists, schema may not.
		return nil, ErrTenantNotReady
	}
}
