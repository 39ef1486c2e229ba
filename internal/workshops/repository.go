// Package workshops is the per-tenant content store. Every query runs
// through the tenant-scoped pool, so the tables addressed here are always
// the ones in the schema of the tenant resolved for the current request —
// no query in this package names a schema or a tenant id.
package workshops

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-lms/backend/internal/models"
	"github.com/atelier-lms/backend/internal/tenancy"
)

// Repository handles workshop, member and enrollment persistence inside the
// request's tenant schema.
type Repository struct {
	db *tenancy.ScopedPool
}

// NewRepository creates a workshops repository over the tenant-scoped pool.
func NewRepository(db *tenancy.ScopedPool) *Repository {
	return &Repository{db: db}
}

// Create inserts a workshop into the tenant schema.
func (r *Repository) Create(ctx context.Context, w *models.Workshop) error {
	return r.db.WithTenant(ctx, func(conn *pgxpool.Conn) error {
		const q = `INSERT INTO workshops (id, title, description, capacity, starts_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at, updated_at`
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		return conn.QueryRow(ctx, q, w.ID, w.Title, w.Description, w.Capacity, w.StartsAt).
			Scan(&w.CreatedAt, &w.UpdatedAt)
	})
}

// List returns the tenant's workshops ordered by start time.
func (r *Repository) List(ctx context.Context) ([]*models.Workshop, error) {
	var list []*models.Workshop
	err := r.db.WithTenant(ctx, func(conn *pgxpool.Conn) error {
		const q = `SELECT id, title, description, capacity, starts_at, created_at, updated_at
			FROM workshops ORDER BY starts_at NULLS LAST, created_at`
		rows, err := conn.Query(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var w models.Workshop
			if err := rows.Scan(&w.ID, &w.Title, &w.Description, &w.Capacity,
				&w.StartsAt, &w.CreatedAt, &w.UpdatedAt); err != nil {
				return err
			}
			list = append(list, &w)
		}
		return rows.Err()
	})
	return list, err
}

// GetByID returns a workshop, or nil when it does not exist in this
// tenant's schema — including when the id belongs to another tenant.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	var w models.Workshop
	err := r.db.WithTenant(ctx, func(conn *pgxpool.Conn) error {
		const q = `SELECT id, title, description, capacity, starts_at, created_at, updated_at
			FROM workshops WHERE id = $1`
		return conn.QueryRow(ctx, q, id).Scan(&w.ID, &w.Title, &w.Description,
			&w.Capacity, &w.StartsAt, &w.CreatedAt, &w.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

// Enroll registers a member (created on first enrollment, matched by email
// afterwards) into a workshop. Both statements run on the same scoped
// connection: one unit of work, one tenant.
func (r *Repository) Enroll(ctx context.Context, workshopID uuid.UUID, email, fullName string) (*models.Enrollment, error) {
	var e models.Enrollment
	err := r.db.WithTenant(ctx, func(conn *pgxpool.Conn) error {
		var memberID uuid.UUID
		const upsertMember = `INSERT INTO members (id, email, full_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
			RETURNING id`
		if err := conn.QueryRow(ctx, upsertMember, uuid.New(), email, fullName).Scan(&memberID); err != nil {
			return err
		}

		const insertEnrollment = `INSERT INTO enrollments (id, workshop_id, member_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (workshop_id, member_id) DO UPDATE SET updated_at = NOW()
			RETURNING id, workshop_id, member_id, progress, created_at, updated_at`
		return conn.QueryRow(ctx, insertEnrollment, uuid.New(), workshopID, memberID).
			Scan(&e.ID, &e.WorkshopID, &e.MemberID, &e.Progress, &e.CreatedAt, &e.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEnrollments returns a workshop's enrollments.
func (r *Repository) ListEnrollments(ctx context.Context, workshopID uuid.UUID) ([]*models.Enrollment, error) {
	var list []*models.Enrollment
	err := r.db.WithTenant(ctx, func(conn *pgxpool.Conn) error {
		const q = `SELECT id, workshop_id, member_id, progress, created_at, updated_at
			FROM enrollments WHERE workshop_id = $1 ORDER BY created_at`
		rows, err := conn.Query(ctx, q, workshopID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e models.Enrollment
			if err := rows.Scan(&e.ID, &e.WorkshopID, &e.MemberID, &e.Progress,
				&e.CreatedAt, &e.UpdatedAt); err != nil {
				return err
			}
			list = append(list, &e)
		}
		return rows.Err()
	})
	return list, err
}

// UpdateProgress sets an enrollment's completion percentage. Returns false
// when the enrollment does not exist in this tenant's schema.
func (r *Repository) UpdateProgress(ctx context.Context, enrollmentID uuid.UUID, progress int) (bool, error) {
	var found bool
	err := r.db.WithTenant(ctx, func(conn *pgxpool.Conn) error {
		const q = `UPDATE enrollments SET progress = $2, updated_at = NOW() WHERE id = $1`
		tag, err := conn.Exec(ctx, q, enrollmentID, progress)
		if err != nil {
			return err
		}
		found = tag.RowsAffected() > 0
		return nil
	})
	return found, err
}
