package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-lms/backend/internal/models"
	"github.com/atelier-lms/backend/internal/tenancy"
	"github.com/atelier-lms/backend/pkg/response"
)

const tenantHeader = "X-Tenant-ID"

type stubRegistry struct {
	tenant *models.Tenant
}

func (s *stubRegistry) Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if s.tenant == nil || s.tenant.ID != id {
		return nil, tenancy.ErrTenantNotFound
	}
	return s.tenant, nil
}

func tenantRouter(registry *stubRegistry, claimTenant *uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	resolver := tenancy.NewResolver(registry, nil, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claimTenant != nil {
			c.Set(ContextClaimTenantID, *claimTenant)
		}
	})
	r.Use(RequireTenant(resolver, tenantHeader, nil))
	r.GET("/ping", func(c *gin.Context) {
		tc, ok := tenancy.FromContext(c.Request.Context())
		if !ok {
			response.Internal(c, "tenant missing from context")
			return
		}
		response.OK(c, gin.H{"schema": tc.SchemaName})
	})
	return r
}

func doRequest(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set(tenantHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireTenantAttachesContext(t *testing.T) {
	tenant := &models.Tenant{
		ID:         uuid.New(),
		Slug:       "acme",
		SchemaName: "tenant_acme",
		Status:     models.TenantStatusActive,
	}
	r := tenantRouter(&stubRegistry{tenant: tenant}, nil)

	w := doRequest(r, tenant.ID.String())
	require.Equal(t, http.StatusOK, w.Code)

	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, map[string]interface{}{"schema": "tenant_acme"}, body.Data)
}

func TestRequireTenantMissingHeader(t *testing.T) {
	r := tenantRouter(&stubRegistry{}, nil)
	w := doRequest(r, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireTenantMalformedHeader(t *testing.T) {
	r := tenantRouter(&stubRegistry{}, nil)
	w := doRequest(r, "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireTenantUnknownTenant(t *testing.T) {
	r := tenantRouter(&stubRegistry{}, nil)
	w := doRequest(r, uuid.New().String())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequireTenantStatusMapping(t *testing.T) {
	cases := []struct {
		status models.TenantStatus
		code   int
	}{
		{models.TenantStatusSuspended, http.StatusForbidden},
		{models.TenantStatusInactive, http.StatusForbidden},
		{models.TenantStatusDeleted, http.StatusNotFound},
		{models.TenantStatusPendingProvision, http.StatusServiceUnavailable},
		{models.TenantStatusProvisionFailed, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		tenant := &models.Tenant{ID: uuid.New(), SchemaName: "tenant_acme", Status: tc.status}
		r := tenantRouter(&stubRegistry{tenant: tenant}, nil)

		w := doRequest(r, tenant.ID.String())
		assert.Equal(t, tc.code, w.Code, "status %s", tc.status)
	}
}

func TestRequireTenantClaimMismatch(t *testing.T) {
	tenant := &models.Tenant{
		ID:         uuid.New(),
		SchemaName: "tenant_acme",
		Status:     models.TenantStatusActive,
	}
	otherTenant := uuid.New()
	r := tenantRouter(&stubRegistry{tenant: tenant}, &otherTenant)

	w := doRequest(r, tenant.ID.String())
	assert.Equal(t, http.StatusForbidden, w.Code)

	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, tenancy.ErrCrossTenantAccess.Error(), body.Error)
}

func TestRequireTenantClaimMatch(t *testing.T) {
	tenant := &models.Tenant{
		ID:         uuid.New(),
		SchemaName: "tenant_acme",
		Status:     models.TenantStatusActive,
	}
	r := tenantRouter(&stubRegistry{tenant: tenant}, &tenant.ID)

	w := doRequest(r, tenant.ID.String())
	assert.Equal(t, http.StatusOK, w.Code)
}
