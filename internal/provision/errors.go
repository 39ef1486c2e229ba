package provision

import "errors"

var (
	// ErrSchemaProvisioningFailed wraps any failure while bringing a new
	// tenant schema to the migration baseline. The tenant is left in
	// provision_failed with the cause recorded durably.
	ErrSchemaProvisioningFailed = errors.New("schema provisioning failed")
	// ErrMigrationFailed wraps a coordinated migration run that left one or
	// more schemas behind. The report names exactly which.
	ErrMigrationFailed = errors.New("migration failed")
)
