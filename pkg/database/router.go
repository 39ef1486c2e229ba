package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrInvalidSchemaName is returned when a schema identifier fails validation
// before it would be spliced into a SET statement.
var ErrInvalidSchemaName = errors.New("invalid schema name")

// schemaNamePattern restricts schema identifiers to what the tenancy layer
// derives from slugs, plus "public". Anything else never reaches SET.
var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Router scopes pooled connections to a tenant schema for the lifetime of
// one unit of work. The pool is shared across all tenants; what changes per
// checkout is only the session search_path, and a connection is never
// returned to the pool while still scoped to a tenant.
type Router struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRouter creates a schema router over the shared pool.
func NewRouter(pool *pgxpool.Pool, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{pool: pool, logger: logger}
}

// Pool exposes the underlying shared pool for unscoped (shared-schema) access.
func (r *Router) Pool() *pgxpool.Pool {
	return r.pool
}

// WithSchema checks out one connection, sets its search_path to
// [schema, public], runs fn, and resets the search_path before the
// connection goes back to the pool. Reset runs on every exit path,
// including panics inside fn. If scoping or reset fails, the connection is
// hijacked and closed instead of released: a miscategorized connection must
// never re-enter circulation.
func (r *Router) WithSchema(ctx context.Context, schema string, fn func(conn *pgxpool.Conn) error) (err error) {
	if !schemaNamePattern.MatchString(schema) {
		return fmt.Errorf("%w: %q", ErrInvalidSchemaName, schema)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}

	if _, err = conn.Exec(ctx, fmt.Sprintf(`SET search_path TO %q, public`, schema)); err != nil {
		r.discard(conn, schema, "set scope")
		return fmt.Errorf("set schema scope %s: %w", schema, err)
	}

	defer func() {
		// The reset must survive request cancellation; a canceled ctx would
		// otherwise strand a tenant-scoped connection in the pool.
		if _, rerr := conn.Exec(context.WithoutCancel(ctx), `SET search_path TO public`); rerr != nil {
			r.discard(conn, schema, "reset scope")
			if err == nil {
				err = fmt.Errorf("reset schema scope: %w", rerr)
			}
			return
		}
		conn.Release()
	}()

	return fn(conn)
}

// discard removes a connection from the pool entirely. Hijack transfers
// ownership out of the pool so Release is no longer involved; closing then
// destroys the session and its search_path with it.
func (r *Router) discard(conn *pgxpool.Conn, schema, op string) {
	raw := conn.Hijack()
	if cerr := raw.Close(context.Background()); cerr != nil {
		r.logger.Warn("closing discarded connection", zap.String("schema", schema), zap.Error(cerr))
	}
	r.logger.Error("connection discarded from pool",
		zap.String("schema", schema),
		zap.String("op", op),
	)
}
