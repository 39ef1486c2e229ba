package tenancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSlug(t *testing.T) {
	valid := []string{"acme", "acme-corp", "a1", "tenant-42-west", "ab"}
	for _, slug := range valid {
		assert.NoError(t, ValidateSlug(slug), "slug %q", slug)
	}

	invalid := []string{
		"",
		"a",                 // too short
		"Acme",              // uppercase
		"acme_corp",         // underscore
		"-acme",             // leading hyphen
		"acme-",             // trailing hyphen
		"acme--corp",        // double hyphen
		"acme corp",         // space
		"café",              // non-ascii
		string(make([]byte, 51)), // too long
	}
	for _, slug := range invalid {
		err := ValidateSlug(slug)
		require.Error(t, err, "slug %q", slug)
		assert.ErrorIs(t, err, ErrInvalidSlug, "slug %q", slug)
	}
}

func TestSchemaNameForSlug(t *testing.T) {
	assert.Equal(t, "tenant_acme", SchemaNameForSlug("acme"))
	assert.Equal(t, "tenant_acme_corp", SchemaNameForSlug("acme-corp"))
	assert.Equal(t, "tenant_a1_b2_c3", SchemaNameForSlug("a1-b2-c3"))

	// Same slug, same schema — the mapping is deterministic.
	assert.Equal(t, SchemaNameForSlug("acme-corp"), SchemaNameForSlug("acme-corp"))
}

func TestSchemaNameFitsPostgresIdentifier(t *testing.T) {
	// Longest valid slug is 50 chars; the derived name must stay under the
	// 63-byte identifier limit.
	slug := "a2345678901234567890123456789012345678901234567890"[:50]
	require.NoError(t, ValidateSlug(slug))
	assert.LessOrEqual(t, len(SchemaNameForSlug(slug)), 63)
}
