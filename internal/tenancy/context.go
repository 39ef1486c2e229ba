package tenancy

import (
	"context"

	"github.com/google/uuid"
)

// Context carries the resolved tenant identity for one request. It is a
// value type created once at request entry and never mutated afterwards;
// a different tenant means a new Context, never an in-place change.
type Context struct {
	TenantID   uuid.UUID
	SchemaName string
}

type ctxKey struct{}

// WithTenant returns a child context carrying tc. The tenant travels with
// the request's context.Context; there is no process-wide current tenant.
func WithTenant(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext extracts the tenant identity resolved for this request.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}
