package tenancy

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-lms/backend/pkg/database"
)

// ScopedPool is the data-access entry point for per-tenant repositories.
// Every query against tenant data goes through WithTenant, which binds a
// pooled connection to the schema of the tenant resolved for this request.
type ScopedPool struct {
	router *database.Router
}

// NewScopedPool wraps the schema router.
func NewScopedPool(router *database.Router) *ScopedPool {
	return &ScopedPool{router: router}
}

// WithTenant runs fn on a connection scoped to the request's tenant schema.
// It fails with ErrNoTenantContext before any connection is checked out
// when the context carries no resolved tenant — unscoped access to tenant
// tables is not representable.
func (s *ScopedPool) WithTenant(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	tc, ok := FromContext(ctx)
	if !ok {
		return ErrNoTenantContext
	}
	return s.router.WithSchema(ctx, tc.SchemaName, fn)
}
