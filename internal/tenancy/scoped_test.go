package tenancy

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestScopedPoolRejectsMissingTenant(t *testing.T) {
	s := NewScopedPool(nil)

	called := false
	err := s.WithTenant(context.Background(), func(conn *pgxpool.Conn) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNoTenantContext)
	assert.False(t, called, "fn must not run without a tenant on the context")
}
