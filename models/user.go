package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a user within an organization
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// User represents a user authenticated via the identity provider.
// UID is the provider's subject; a user exists independently of any
// organization and holds at most one role per org (see Membership).
type User struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UID         string    `json:"uid" db:"uid"` // identity-provider subject, unique
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name,omitempty" db:"display_name"`
	PhotoURL    string    `json:"photo_url,omitempty" db:"photo_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	LastLoginAt time.Time `json:"last_login_at" db:"last_login_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(uid, email, displayName, photoURL string) *User {
	now := time.Now()
	return &User{
		ID:          uuid.New(),
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		PhotoURL:    photoURL,
		CreatedAt:   now,
		LastLoginAt: now,
	}
}

// Membership links a user to an organization with a single role.
// The (UserID, OrgID) pair is unique; membership addition is a conditional
// insert so two concurrent joins cannot produce duplicate rows.
type Membership struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	OrgID     uuid.UUID `json:"org_id" db:"org_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Membership model
func (Membership) TableName() string {
	return "memberships"
}

// NewMembership creates a new Membership instance
func NewMembership(userID, orgID uuid.UUID, role Role) *Membership {
	return &Membership{
		UserID:    userID,
		OrgID:     orgID,
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// IsAdmin returns true if the membership carries the admin role
func (m *Membership) IsAdmin() bool {
	return m.Role == RoleAdmin
}
