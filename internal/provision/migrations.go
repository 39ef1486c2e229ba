package provision

import (
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/shared/*.sql migrations/tenant/*.sql
var migrationsFS embed.FS

// Migration is one ordered, atomically-applied schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Source holds the two ordered migration sets: one for the shared registry
// namespace, one replayed into every tenant schema.
type Source struct {
	shared []Migration
	tenant []Migration
}

// LoadSource parses the embedded migration files. Filenames follow
// NNN_description.sql; the numeric prefix is the version.
func LoadSource() (*Source, error) {
	shared, err := loadDir("migrations/shared")
	if err != nil {
		return nil, err
	}
	tenant, err := loadDir("migrations/tenant")
	if err != nil {
		return nil, err
	}
	return &Source{shared: shared, tenant: tenant}, nil
}

// Shared returns the shared-namespace migrations in version order.
func (s *Source) Shared() []Migration { return s.shared }

// Tenant returns the per-tenant-schema migrations in version order.
func (s *Source) Tenant() []Migration { return s.tenant }

func loadDir(dir string) ([]Migration, error) {
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var migs []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, name, err := parseMigrationName(e.Name())
		if err != nil {
			return nil, err
		}
		body, err := migrationsFS.ReadFile(dir + "/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		migs = append(migs, Migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(migs, func(i, j int) bool { return migs[i].Version < migs[j].Version })
	for i := 1; i < len(migs); i++ {
		if migs[i].Version == migs[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d in %s", migs[i].Version, dir)
		}
	}
	return migs, nil
}

func parseMigrationName(filename string) (int, string, error) {
	base := strings.TrimSuffix(filename, ".sql")
	prefix, rest, found := strings.Cut(base, "_")
	if !found || rest == "" {
		return 0, "", fmt.Errorf("migration filename %q: want NNN_description.sql", filename)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("migration filename %q: bad version prefix", filename)
	}
	return version, rest, nil
}
