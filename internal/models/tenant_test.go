package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to TenantStatus }{
		{TenantStatusPendingProvision, TenantStatusActive},
		{TenantStatusPendingProvision, TenantStatusProvisionFailed},
		{TenantStatusProvisionFailed, TenantStatusActive},
		{TenantStatusProvisionFailed, TenantStatusProvisionFailed},
		{TenantStatusActive, TenantStatusSuspended},
		{TenantStatusActive, TenantStatusInactive},
		{TenantStatusSuspended, TenantStatusActive},
		{TenantStatusSuspended, TenantStatusInactive},
		{TenantStatusInactive, TenantStatusDeleted},
		{TenantStatusActive, TenantStatusDeleted},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	forbidden := []struct{ from, to TenantStatus }{
		{TenantStatusActive, TenantStatusPendingProvision},
		{TenantStatusSuspended, TenantStatusPendingProvision},
		{TenantStatusInactive, TenantStatusActive},
		{TenantStatusInactive, TenantStatusSuspended},
		{TenantStatusPendingProvision, TenantStatusSuspended},
	}
	for _, tc := range forbidden {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestDeletedIsTerminal(t *testing.T) {
	all := []TenantStatus{
		TenantStatusPendingProvision, TenantStatusProvisionFailed,
		TenantStatusActive, TenantStatusSuspended,
		TenantStatusInactive, TenantStatusDeleted,
	}
	for _, next := range all {
		assert.False(t, TenantStatusDeleted.CanTransitionTo(next), "deleted -> %s", next)
	}
}

func TestTenantStatusValid(t *testing.T) {
	assert.True(t, TenantStatusActive.Valid())
	assert.True(t, TenantStatusPendingProvision.Valid())
	assert.False(t, TenantStatus("archived").Valid())
	assert.False(t, TenantStatus("").Valid())
}
