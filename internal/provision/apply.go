package provision

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/atelier-lms/backend/pkg/metrics"
)

// SchemaManager performs the DDL-level operations provisioning and
// coordinated migration share. Implementations must guarantee that Apply
// never leaves a single migration half-applied.
type SchemaManager interface {
	// EnsureSchema creates the schema if it does not exist.
	EnsureSchema(ctx context.Context, schema string) error
	// Apply brings schema up to date with migs, skipping versions already
	// recorded in the schema's version table, in strict version order.
	// It returns the last applied version even on failure, so callers can
	// report exactly how far the schema got.
	Apply(ctx context.Context, schema string, migs []Migration) (int, error)
}

// pgSchemaManager is the Postgres implementation of SchemaManager. Each
// migration step runs in its own transaction with a transaction-local
// search_path, so nothing leaks into pooled sessions and a failed step
// rolls back both the DDL and its version record together.
type pgSchemaManager struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewSchemaManager creates the Postgres schema manager.
func NewSchemaManager(pool *pgxpool.Pool, m *metrics.Metrics, logger *zap.Logger) SchemaManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &pgSchemaManager{pool: pool, metrics: m, logger: logger}
}

func (m *pgSchemaManager) EnsureSchema(ctx context.Context, schema string) error {
	if _, err := m.pool.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}
	return nil
}

func (m *pgSchemaManager) Apply(ctx context.Context, schema string, migs []Migration) (int, error) {
	if err := m.ensureVersionTable(ctx, schema); err != nil {
		return 0, err
	}
	applied, err := m.appliedVersions(ctx, schema)
	if err != nil {
		return 0, err
	}

	last := 0
	for v := range applied {
		if v > last {
			last = v
		}
	}

	for _, mig := range migs {
		if applied[mig.Version] {
			continue
		}
		if err := m.applyOne(ctx, schema, mig); err != nil {
			m.step("failed")
			return last, fmt.Errorf("apply %03d_%s to %s: %w", mig.Version, mig.Name, schema, err)
		}
		m.step("applied")
		last = mig.Version
		m.logger.Info("migration applied",
			zap.String("schema", schema),
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name),
		)
	}
	return last, nil
}

func (m *pgSchemaManager) step(outcome string) {
	if m.metrics != nil {
		m.metrics.MigrationStepsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *pgSchemaManager) ensureVersionTable(ctx context.Context, schema string) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q.schema_migrations (
		version    integer PRIMARY KEY,
		name       text NOT NULL,
		applied_at timestamptz NOT NULL DEFAULT NOW()
	)`, schema)
	if _, err := m.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure version table in %s: %w", schema, err)
	}
	return nil
}

func (m *pgSchemaManager) appliedVersions(ctx context.Context, schema string) (map[int]bool, error) {
	rows, err := m.pool.Query(ctx, fmt.Sprintf(`SELECT version FROM %q.schema_migrations`, schema))
	if err != nil {
		return nil, fmt.Errorf("read applied versions in %s: %w", schema, err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// applyOne runs one migration step atomically: SET LOCAL scopes the
// search_path to this transaction only, the migration body and its version
// row commit together or not at all.
func (m *pgSchemaManager) applyOne(ctx context.Context, schema string, mig Migration) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`SET LOCAL search_path TO %q, public`, schema)); err != nil {
		return fmt.Errorf("scope transaction: %w", err)
	}
	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		mig.Version, mig.Name); err != nil {
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit(ctx)
}
