package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role in the portal
type Role string

const (
	RoleUser              Role = "user"
	RoleComplianceOfficer Role = "compliance_officer"
	RoleAdmin             Role = "admin"
)

// IsValid reports whether the role is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleComplianceOfficer, RoleAdmin:
		return true
	}
	return false
}

// Elevated reports whether the role may act on applications it does not own
func (r Role) Elevated() bool {
	return r == RoleComplianceOfficer || r == RoleAdmin
}

// User represents a portal account
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	FirstName    string     `json:"firstName" db:"first_name"`
	LastName     string     `json:"lastName" db:"last_name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	CompanyID    *uuid.UUID `json:"company,omitempty" db:"company_id"`
	IsActive     bool       `json:"isActive" db:"is_active"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// RegisterRequest is the payload for account registration
type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the payload for authentication
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued bearer token
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
	User        *User  `json:"user,omitempty"`
}
