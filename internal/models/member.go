package models

import (
	"time"

	"github.com/google/uuid"
)

// Member is a per-tenant user record inside one tenant schema. Email is
// unique within a tenant only; two tenants can both have alice@example.com.
type Member struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
