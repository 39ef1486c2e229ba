package models

import (
	"time"

	"github.com/google/uuid"
)

// Workshop is a per-tenant entity; it lives only inside one tenant's schema
// and carries no tenant column because the schema itself is the boundary.
type Workshop struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Capacity    int        `json:"capacity"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Enrollment links a member to a workshop within one tenant schema.
type Enrollment struct {
	ID         uuid.UUID `json:"id"`
	WorkshopID uuid.UUID `json:"workshop_id"`
	MemberID   uuid.UUID `json:"member_id"`
	Progress   int       `json:"progress"` // percent complete, 0-100
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
