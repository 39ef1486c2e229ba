package provision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSource(t *testing.T) {
	source, err := LoadSource()
	require.NoError(t, err)

	shared := source.Shared()
	require.NotEmpty(t, shared)
	assert.Equal(t, 1, shared[0].Version)
	assert.Equal(t, "tenants", shared[0].Name)

	tenant := source.Tenant()
	require.NotEmpty(t, tenant)
	for i := 1; i < len(tenant); i++ {
		assert.Greater(t, tenant[i].Version, tenant[i-1].Version, "tenant migrations must be strictly ordered")
	}
	for _, m := range append(shared, tenant...) {
		assert.NotEmpty(t, m.SQL, "migration %03d_%s", m.Version, m.Name)
	}
}

func TestParseMigrationName(t *testing.T) {
	version, name, err := parseMigrationName("001_members.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, "members", name)

	version, name, err = parseMigrationName("012_add_settings_column.sql")
	require.NoError(t, err)
	assert.Equal(t, 12, version)
	assert.Equal(t, "add_settings_column", name)

	for _, bad := range []string{"members.sql", "abc_members.sql", "0_x.sql", "001_.sql"} {
		_, _, err := parseMigrationName(bad)
		assert.Error(t, err, "filename %q", bad)
	}
}
