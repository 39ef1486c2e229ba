package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantStatusPendingProvision TenantStatus = "pending_provision"
	TenantStatusProvisionFailed  TenantStatus = "provision_failed"
	TenantStatusActive           TenantStatus = "active"
	TenantStatusSuspended        TenantStatus = "suspended"
	TenantStatusInactive         TenantStatus = "inactive"
	TenantStatusDeleted          TenantStatus = "deleted"
)

// validTransitions enumerates the tenant state machine. Deleted is terminal.
var validTransitions = map[TenantStatus][]TenantStatus{
	TenantStatusPendingProvision: {TenantStatusActive, TenantStatusProvisionFailed, TenantStatusDeleted},
	TenantStatusProvisionFailed:  {TenantStatusActive, TenantStatusProvisionFailed, TenantStatusDeleted},
	TenantStatusActive:           {TenantStatusSuspended, TenantStatusInactive, TenantStatusDeleted},
	TenantStatusSuspended:        {TenantStatusActive, TenantStatusInactive, TenantStatusDeleted},
	TenantStatusInactive:         {TenantStatusDeleted},
	TenantStatusDeleted:          nil,
}

// CanTransitionTo reports whether the state machine allows moving to next.
func (s TenantStatus) CanTransitionTo(next TenantStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status value.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantStatusPendingProvision, TenantStatusProvisionFailed, TenantStatusActive,
		TenantStatusSuspended, TenantStatusInactive, TenantStatusDeleted:
		return true
	}
	return false
}

// SubscriptionTier values accepted at tenant creation.
const (
	TierTrial      = "trial"
	TierStandard   = "standard"
	TierEnterprise = "enterprise"
)

// Tenant is the registry record for one isolated customer organization.
// Slug and SchemaName are immutable once set; rows are never physically
// deleted so neither value can ever be reissued to a later tenant.
type Tenant struct {
	ID               uuid.UUID         `json:"id"`
	Slug             string            `json:"slug"`
	Name             string            `json:"name"`
	SchemaName       string            `json:"schema_name"`
	Status           TenantStatus      `json:"status"`
	SubscriptionTier string            `json:"subscription_tier"`
	Settings         map[string]string `json:"settings,omitempty"`
	LastError        *string           `json:"last_error,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
