package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atelier-lms/backend/internal/tenancy"
	"github.com/atelier-lms/backend/pkg/response"
)

// ContextTenantID is the key for the resolved tenant ID in gin context.
const ContextTenantID = "tenant_id"

// RequireTenant resolves the tenant header, cross-checks it against the
// token's tenant claim, and attaches the resolved tenant identity to the
// request context. Everything downstream — handlers, repositories, the
// schema router — reads the tenant from that context and nowhere else.
// Resolution failures abort here, before any database connection is
// checked out for the request.
func RequireTenant(resolver *tenancy.Resolver, header string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		tenant, err := resolver.Resolve(c.Request.Context(), c.GetHeader(header))
		if err != nil {
			respondResolveError(c, err)
			c.Abort()
			return
		}

		// The token asserts a tenant; the header names one. They must agree.
		// A mismatch is an isolation invariant violation and is never
		// resolved silently in favor of either source.
		if claimVal, ok := c.Get(ContextClaimTenantID); ok {
			if claimID, ok := claimVal.(uuid.UUID); ok && claimID != tenant.ID {
				logger.Error("cross-tenant access attempt",
					zap.String("header_tenant", tenant.ID.String()),
					zap.String("claim_tenant", claimID.String()),
					zap.String("path", c.Request.URL.Path),
				)
				response.Forbidden(c, tenancy.ErrCrossTenantAccess.Error())
				c.Abort()
				return
			}
		}

		tc := tenancy.Context{TenantID: tenant.ID, SchemaName: tenant.SchemaName}
		c.Request = c.Request.WithContext(tenancy.WithTenant(c.Request.Context(), tc))
		c.Set(ContextTenantID, tenant.ID)
		c.Next()
	}
}

func respondResolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tenancy.ErrMissingTenantHeader),
		errors.Is(err, tenancy.ErrInvalidTenantID):
		response.BadRequest(c, err.Error())
	case errors.Is(err, tenancy.ErrTenantNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, tenancy.ErrTenantSuspended),
		errors.Is(err, tenancy.ErrTenantInactive):
		response.Forbidden(c, err.Error())
	case errors.Is(err, tenancy.ErrTenantNotReady):
		response.ServiceUnavailable(c, err.Error())
	default:
		response.Internal(c, "tenant resolution failed")
	}
}
