package entity

import "github.com/google/uuid"

// Role ID constants, as carried in identity tokens
const (
	RoleIDAdmin        = 1
	RoleIDVeterinarian = 2
	RoleIDCustomer     = 3
)

// RoleNames constants
const (
	RoleAdmin        = "admin"
	RoleVeterinarian = "veterinarian"
	RoleCustomer     = "customer"
)

// RoleName maps a role ID to its name. Unknown IDs map to "".
func RoleName(roleID int) string {
	switch roleID {
	case RoleIDAdmin:
		return RoleAdmin
	case RoleIDVeterinarian:
		return RoleVeterinarian
	case RoleIDCustomer:
		return RoleCustomer
	default:
		return ""
	}
}

// Actor is the identity performing an operation.
type Actor struct {
	UserID uuid.UUID
	RoleID int
}

func (a Actor) IsAdmin() bool {
	return a.RoleID == RoleIDAdmin
}

func (a Actor) IsVeterinarian() bool {
	return a.RoleID == RoleIDVeterinarian
}

func (a Actor) IsCustomer() bool {
	return a.RoleID == RoleIDCustomer
}

// IsStaff reports whether the actor works at the clinic.
func (a Actor) IsStaff() bool {
	return a.IsAdmin() || a.IsVeterinarian()
}
