package models

import "time"

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleVerifier Role = "VERIFIER"
)

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleVerifier
}

// RoleAssignment grants one role to one principal. Many-to-many: a
// principal may hold several roles, a role several principals.
type RoleAssignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Address   string    `gorm:"size:64;not null;uniqueIndex:idx_role_address_role" json:"address"`
	Role      Role      `gorm:"size:20;not null;uniqueIndex:idx_role_address_role" json:"role"`
	GrantedBy string    `gorm:"size:64;not null" json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (RoleAssignment) TableName() string {
	return "role_assignments"
}

// RoleRequest grants or revokes a role for an address.
type RoleRequest struct {
	Address string `json:"address" binding:"required"`
	Role    Role   `json:"role" binding:"required"`
}
