package model

import "time"

// User represents an account in the system
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Do not expose password hash in JSON responses
	FullName     string    `json:"full_name"`
	University   *string   `json:"university,omitempty"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	Roles        RoleSet   `json:"roles"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the authenticated caller of a service operation.
type Principal struct {
	UserID int64
	Roles  RoleSet
}

// Authorize fails with a permission error unless the principal holds at least
// one of the required capabilities.
func (p Principal) Authorize(required ...Capability) error {
	return p.Roles.Authorize(required...)
}

// CreateStaffUserRequest is used by admins to create ambassador, registration
// team or admin accounts.
type CreateStaffUserRequest struct {
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=8,max=72"`
	FullName string   `json:"full_name" binding:"required"`
	Roles    []string `json:"roles" binding:"required,min=1,dive,oneof=participant ambassador registration_team admin"`
}

// UpdateRolesRequest replaces the role set of a user.
type UpdateRolesRequest struct {
	Roles []string `json:"roles" binding:"required,min=1,dive,oneof=participant ambassador registration_team admin"`
}
