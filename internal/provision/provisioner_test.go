package provision

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-lms/backend/internal/models"
)

// fakeManager records schema operations and can fail a chosen schema.
type fakeManager struct {
	mu          sync.Mutex
	ensured     []string
	applied     []string
	failSchema  string
	failErr     error
	lastVersion int
}

func (f *fakeManager) EnsureSchema(ctx context.Context, schema string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, schema)
	return nil
}

func (f *fakeManager) Apply(ctx context.Context, schema string, migs []Migration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, schema)
	if schema == f.failSchema {
		return f.lastVersion, f.failErr
	}
	last := f.lastVersion
	if last == 0 && len(migs) > 0 {
		last = migs[len(migs)-1].Version
	}
	return last, nil
}

// fakeRegistry is an in-memory tenant registry for provisioning tests.
type fakeRegistry struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*models.Tenant
}

func newFakeRegistry(tenants ...*models.Tenant) *fakeRegistry {
	r := &fakeRegistry{tenants: make(map[uuid.UUID]*models.Tenant)}
	for _, t := range tenants {
		r.tenants[t.ID] = t
	}
	return r
}

func (r *fakeRegistry) Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, errors.New("tenant not found")
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRegistry) UpdateStatus(ctx context.Context, id uuid.UUID, next models.TenantStatus, lastError *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return errors.New("tenant not found")
	}
	t.Status = next
	t.LastError = lastError
	return nil
}

func (r *fakeRegistry) List(ctx context.Context, includeDeleted bool) ([]*models.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Tenant
	for _, t := range r.tenants {
		if !includeDeleted && t.Status == models.TenantStatusDeleted {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func pendingTenant(slug string) *models.Tenant {
	return &models.Tenant{
		ID:         uuid.New(),
		Slug:       slug,
		SchemaName: "tenant_" + slug,
		Status:     models.TenantStatusPendingProvision,
	}
}

func testSource() *Source {
	return &Source{
		shared: []Migration{{Version: 1, Name: "tenants", SQL: "CREATE TABLE tenants ()"}},
		tenant: []Migration{
			{Version: 1, Name: "members", SQL: "CREATE TABLE members ()"},
			{Version: 2, Name: "workshops", SQL: "CREATE TABLE workshops ()"},
		},
	}
}

func TestProvisionActivatesTenant(t *testing.T) {
	tenant := pendingTenant("acme")
	registry := newFakeRegistry(tenant)
	manager := &fakeManager{}
	p := NewProvisioner(manager, registry, testSource(), nil, nil)

	require.NoError(t, p.Provision(context.Background(), tenant.ID))

	got, _ := registry.Get(context.Background(), tenant.ID)
	assert.Equal(t, models.TenantStatusActive, got.Status)
	assert.Nil(t, got.LastError)
	assert.Equal(t, []string{"tenant_acme"}, manager.ensured)
	assert.Equal(t, []string{"tenant_acme"}, manager.applied)
}

func TestProvisionFailureRecordsCause(t *testing.T) {
	tenant := pendingTenant("acme")
	registry := newFakeRegistry(tenant)
	manager := &fakeManager{failSchema: "tenant_acme", failErr: errors.New("relation already exists")}
	p := NewProvisioner(manager, registry, testSource(), nil, nil)

	err := p.Provision(context.Background(), tenant.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaProvisioningFailed)

	got, _ := registry.Get(context.Background(), tenant.ID)
	assert.Equal(t, models.TenantStatusProvisionFailed, got.Status)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "relation already exists")
}

func TestProvisionRetryAfterFailure(t *testing.T) {
	tenant := pendingTenant("acme")
	registry := newFakeRegistry(tenant)
	manager := &fakeManager{failSchema: "tenant_acme", failErr: errors.New("boom")}
	p := NewProvisioner(manager, registry, testSource(), nil, nil)

	require.Error(t, p.Provision(context.Background(), tenant.ID))

	// Retry with the fault gone: the failed tenant is provisionable again.
	manager.failSchema = ""
	require.NoError(t, p.Provision(context.Background(), tenant.ID))

	got, _ := registry.Get(context.Background(), tenant.ID)
	assert.Equal(t, models.TenantStatusActive, got.Status)
	assert.Nil(t, got.LastError)
}

func TestProvisionAlreadyActiveIsNoop(t *testing.T) {
	tenant := pendingTenant("acme")
	tenant.Status = models.TenantStatusActive
	registry := newFakeRegistry(tenant)
	manager := &fakeManager{}
	p := NewProvisioner(manager, registry, testSource(), nil, nil)

	require.NoError(t, p.Provision(context.Background(), tenant.ID))
	assert.Empty(t, manager.ensured, "no schema work for an active tenant")
}

func TestProvisionRejectsNonProvisionableStatus(t *testing.T) {
	tenant := pendingTenant("acme")
	tenant.Status = models.TenantStatusSuspended
	registry := newFakeRegistry(tenant)
	p := NewProvisioner(&fakeManager{}, registry, testSource(), nil, nil)

	err := p.Provision(context.Background(), tenant.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not provisionable")
}
