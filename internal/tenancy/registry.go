package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/atelier-lms/backend/internal/models"
	"github.com/atelier-lms/backend/pkg/cache"
	"github.com/atelier-lms/backend/pkg/metrics"
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

const tenantCacheKeyPrefix = "tenant:id:"

// Registry is the authoritative store of tenant metadata. It owns the
// shared-namespace tenants table and the read-through cache in front of it.
type Registry struct {
	pool     *pgxpool.Pool
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewRegistry creates a tenant registry over the shared pool.
func NewRegistry(pool *pgxpool.Pool, c cache.Cache, cacheTTL time.Duration, m *metrics.Metrics, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{pool: pool, cache: c, cacheTTL: cacheTTL, metrics: m, logger: logger}
}

const tenantColumns = `id, slug, name, schema_name, status, subscription_tier, settings, last_error, created_at, updated_at`

// Create inserts a new tenant in pending_provision status and returns
// immediately; schema creation happens out-of-band. Slug collisions are
// detected by the unique constraint, not a pre-check, so two concurrent
// creations of the same slug cannot both succeed.
func (r *Registry) Create(ctx context.Context, name, slug, tier string) (*models.Tenant, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	if tier == "" {
		tier = models.TierTrial
	}

	t := &models.Tenant{
		ID:               uuid.New(),
		Slug:             slug,
		Name:             name,
		SchemaName:       SchemaNameForSlug(slug),
		Status:           models.TenantStatusPendingProvision,
		SubscriptionTier: tier,
	}

	const q = `INSERT INTO tenants (id, slug, name, schema_name, status, subscription_tier, settings)
		VALUES ($1, $2, $3, $4, $5, $6, '{}'::jsonb)
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, t.ID, t.Slug, t.Name, t.SchemaName, t.Status, t.SubscriptionTier).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlugConflict
		}
		return nil, fmt.Errorf("insert tenant: %w", err)
	}

	r.logger.Info("tenant created",
		zap.String("tenant_id", t.ID.String()),
		zap.String("slug", t.Slug),
		zap.String("schema", t.SchemaName),
	)
	return t, nil
}

// Get returns the tenant by id, consulting the cache first. Cached entries
// carry the full record; status checks always run against what is returned,
// so a stale entry can at worst delay a status change by the cache TTL.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	key := tenantCacheKeyPrefix + id.String()
	if r.cache != nil {
		if raw, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			var t models.Tenant
			if err := json.Unmarshal(raw, &t); err == nil {
				if r.metrics != nil {
					r.metrics.ResolutionsTotal.WithLabelValues("hit").Inc()
				}
				return &t, nil
			}
		} else if err != nil {
			r.logger.Warn("tenant cache read", zap.Error(err))
		}
	}
	if r.metrics != nil {
		r.metrics.ResolutionsTotal.WithLabelValues("miss").Inc()
	}

	t, err := r.fetch(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, key, t)
	return t, nil
}

// GetBySlug returns the tenant by slug. Used by provisioning tooling; not
// on the request hot path, so it bypasses the cache.
func (r *Registry) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return r.fetch(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
}

// List returns all tenants, optionally including deleted ones. The
// migration coordinator lists with includeDeleted=false: deleted tenants
// keep their registry row (so slug and schema name stay reserved) but their
// schemas are no longer migrated.
func (r *Registry) List(ctx context.Context, includeDeleted bool) ([]*models.Tenant, error) {
	q := `SELECT ` + tenantColumns + ` FROM tenants`
	if !includeDeleted {
		q += ` WHERE status <> 'deleted'`
	}
	q += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var list []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// UpdateStatus is the only path that can transition tenant status. It
// validates the state machine under a row lock, records lastError durably
// for provisioning failures, and eagerly invalidates the cache entry.
func (r *Registry) UpdateStatus(ctx context.Context, id uuid.UUID, next models.TenantStatus, lastError *string) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current models.TenantStatus
	err = tx.QueryRow(ctx, `SELECT status FROM tenants WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("lock tenant: %w", err)
	}
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	_, err = tx.Exec(ctx,
		`UPDATE tenants SET status = $2, last_error = $3, updated_at = NOW() WHERE id = $1`,
		id, next, lastError)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.invalidate(ctx, id)
	r.logger.Info("tenant status updated",
		zap.String("tenant_id", id.String()),
		zap.String("from", string(current)),
		zap.String("to", string(next)),
	)
	return nil
}

func (r *Registry) fetch(ctx context.Context, q string, arg any) (*models.Tenant, error) {
	row := r.pool.QueryRow(ctx, q, arg)
	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("fetch tenant: %w", err)
	}
	return t, nil
}

func (r *Registry) cacheSet(ctx context.Context, key string, t *models.Tenant) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.cacheTTL); err != nil {
		r.logger.Warn("tenant cache write", zap.String("key", key), zap.Error(err))
	}
}

func (r *Registry) invalidate(ctx context.Context, id uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, tenantCacheKeyPrefix+id.String()); err != nil {
		r.logger.Warn("tenant cache invalidation", zap.String("tenant_id", id.String()), zap.Error(err))
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var (
		t           models.Tenant
		settingsRaw []byte
	)
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.SchemaName, &t.Status,
		&t.SubscriptionTier, &settingsRaw, &t.LastError, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(settingsRaw) > 0 {
		if err := json.Unmarshal(settingsRaw, &t.Settings); err != nil {
			return nil, fmt.Errorf("decode tenant settings: %w", err)
		}
	}
	return &t, nil
}
