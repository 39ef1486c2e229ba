package tenancy

import (
	"fmt"
	"regexp"
	"strings"
)

// slugPattern accepts lowercase alphanumerics with interior hyphens,
// 2 to 50 characters. Postgres identifiers cap at 63 bytes, so the derived
// schema name ("tenant_" prefix plus slug) always fits.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidateSlug checks the slug format used for tenant creation.
func ValidateSlug(slug string) error {
	if len(slug) < 2 || len(slug) > 50 {
		return fmt.Errorf("%w: must be 2-50 characters", ErrInvalidSlug)
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: lowercase letters, digits and interior hyphens only", ErrInvalidSlug)
	}
	return nil
}

// SchemaNameForSlug derives the tenant schema name. It is a pure function
// of the slug: the same slug always maps to the same schema. Because slugs
// are unique forever (deleted tenants keep their registry row), a schema
// name can never be handed to a second tenant.
func SchemaNameForSlug(slug string) string {
	return "tenant_" + strings.ReplaceAll(slug, "-", "_")
}
