package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-lms/backend/internal/models"
)

func activeTenants(slugs ...string) []*models.Tenant {
	out := make([]*models.Tenant, 0, len(slugs))
	for _, s := range slugs {
		t := pendingTenant(s)
		t.Status = models.TenantStatusActive
		out = append(out, t)
	}
	return out
}

func TestApplyPendingMigratesAllSchemas(t *testing.T) {
	tenants := activeTenants("acme", "globex", "initech")
	registry := newFakeRegistry(tenants...)
	manager := &fakeManager{}
	c := NewCoordinator(manager, registry, testSource(), 2, nil, nil)

	report, err := c.ApplyPending(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Failed())

	assert.Equal(t, "public", report.Shared.Schema)
	assert.Equal(t, 1, report.Shared.LastVersion)
	assert.Len(t, report.Tenants, 3)
	for _, res := range report.Tenants {
		assert.Empty(t, res.Error, "schema %s", res.Schema)
		assert.False(t, res.Skipped, "schema %s", res.Schema)
		assert.Equal(t, 2, res.LastVersion, "schema %s", res.Schema)
	}
	// Shared plus three tenant schemas.
	assert.Len(t, manager.applied, 4)
}

func TestApplyPendingSharedFailureStopsRun(t *testing.T) {
	registry := newFakeRegistry(activeTenants("acme")...)
	manager := &fakeManager{failSchema: "public", failErr: errors.New("syntax error")}
	c := NewCoordinator(manager, registry, testSource(), 2, nil, nil)

	report, err := c.ApplyPending(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.NotEmpty(t, report.Shared.Error)
	assert.Empty(t, report.Tenants, "no tenant schema touched after shared failure")
}

func TestApplyPendingHaltsAfterTenantFailure(t *testing.T) {
	tenants := activeTenants("acme", "globex", "initech", "umbrella", "stark", "wayne")
	registry := newFakeRegistry(tenants...)
	manager := &fakeManager{failSchema: "tenant_acme", failErr: errors.New("column exists")}
	// Width 1 so schemas run strictly one after another: everything queued
	// behind the failure must be skipped, never half-run.
	c := NewCoordinator(manager, registry, testSource(), 1, nil, nil)

	report, err := c.ApplyPending(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.True(t, report.Failed())

	// The registry lists by slug, so "acme" fails first and every schema
	// queued behind it is skipped.
	var failed, skipped, migrated int
	for _, res := range report.Tenants {
		switch {
		case res.Error != "":
			failed++
			assert.Equal(t, "tenant_acme", res.Schema)
		case res.Skipped:
			skipped++
		default:
			migrated++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, len(tenants)-1, skipped)
	assert.Equal(t, 0, migrated)
}

func TestApplyPendingSkipsUnprovisionedTenants(t *testing.T) {
	ready := activeTenants("acme")[0]
	pending := pendingTenant("globex")
	failed := pendingTenant("initech")
	failed.Status = models.TenantStatusProvisionFailed

	registry := newFakeRegistry(ready, pending, failed)
	manager := &fakeManager{}
	c := NewCoordinator(manager, registry, testSource(), 2, nil, nil)

	report, err := c.ApplyPending(context.Background())
	require.NoError(t, err)

	bySchema := map[string]SchemaResult{}
	for _, res := range report.Tenants {
		bySchema[res.Schema] = res
	}
	assert.False(t, bySchema["tenant_acme"].Skipped)
	assert.True(t, bySchema["tenant_globex"].Skipped)
	assert.True(t, bySchema["tenant_initech"].Skipped)
}

func TestApplyPendingExcludesDeletedTenants(t *testing.T) {
	ready := activeTenants("acme")[0]
	deleted := pendingTenant("globex")
	deleted.Status = models.TenantStatusDeleted

	registry := newFakeRegistry(ready, deleted)
	manager := &fakeManager{}
	c := NewCoordinator(manager, registry, testSource(), 2, nil, nil)

	report, err := c.ApplyPending(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Tenants, 1)
	assert.Equal(t, "tenant_acme", report.Tenants[0].Schema)
}

func TestApplySharedOnly(t *testing.T) {
	manager := &fakeManager{}
	c := NewCoordinator(manager, newFakeRegistry(), testSource(), 2, nil, nil)

	res, err := c.ApplyShared(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "public", res.Schema)
	assert.Equal(t, 1, res.LastVersion)
	assert.Equal(t, []string{"public"}, manager.applied)
}
