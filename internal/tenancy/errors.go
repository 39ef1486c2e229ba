package tenancy

import "errors"

var (
	// ErrMissingTenantHeader is returned when a request carries no tenant identifier.
	ErrMissingTenantHeader = errors.New("missing tenant header")
	// ErrInvalidTenantID is returned when the tenant identifier is not a UUID.
	ErrInvalidTenantID = errors.New("invalid tenant identifier")
	// ErrTenantNotFound is returned when no registry record matches the identifier.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantSuspended is returned when the tenant exists but is suspended.
	ErrTenantSuspended = errors.New("tenant suspended")
	// ErrTenantInactive is returned when the tenant has been deactivated.
	ErrTenantInactive = errors.New("tenant inactive")
	// ErrTenantNotReady is returned while provisioning is pending or has failed.
	ErrTenantNotReady = errors.New("tenant provisioning not complete")
	// ErrSlugConflict is returned when the slug is already taken.
	ErrSlugConflict = errors.New("tenant slug already exists")
	// ErrInvalidSlug is returned when the slug fails validation.
	ErrInvalidSlug = errors.New("invalid tenant slug")
	// ErrInvalidTransition is returned for a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid tenant status transition")
	// ErrNoTenantContext is returned when tenant-scoped data access is attempted
	// without a resolved tenant on the context.
	ErrNoTenantContext = errors.New("no tenant in request context")
	// ErrCrossTenantAccess marks an isolation invariant violation: a request
	// addressed one tenant while its credentials belong to another. This is a
	// defect signal, not a routine failure, and is logged at error level.
	ErrCrossTenantAccess = errors.New("cross-tenant access attempt")
)
