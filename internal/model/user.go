package model

import "time"

// UserID uniquely identifies a registered account
type UserID string

// Role controls what a user may do
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AuthProvider identifies how a user authenticates
type AuthProvider string

const (
	AuthProviderLocal    AuthProvider = "local"
	AuthProviderGoogle   AuthProvider = "google"
	AuthProviderFacebook AuthProvider = "facebook"
)

// User is a registered account
type User struct {
	ID             UserID
	Email          string // lower-cased, unique
	Name           string
	DisplayName    string // optional override chosen by the user
	Role           Role
	AuthProvider   AuthProvider
	AuthProviderID string // empty for local accounts
	PasswordHash   string // bcrypt hash, empty for OAuth accounts
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// PreferredName returns the display name if set, otherwise the account name
func (u *User) PreferredName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}
