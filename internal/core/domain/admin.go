package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminRole is the privilege level of an administrative principal.
type AdminRole string

const (
	// RoleAdmin may perform every wallet lifecycle operation.
	RoleAdmin AdminRole = "ADMIN"
	// RoleViewer may only read the tenant directory.
	RoleViewer AdminRole = "VIEWER"
)

// Admin is an administrative principal of the wallet dashboard.
// Admins are operators of the platform, not tenants.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Argon2id, never expose
	Role         AdminRole `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
