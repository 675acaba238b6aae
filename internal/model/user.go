package model

import "time"

// Role is the authorization level stored in users.role.  Roles are ranked
// user < developer < admin; a route that requires a rank admits every role
// at or above it.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Rank orders roles for authorization checks.  Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleDeveloper:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

// Status is the lifecycle state stored in users.status.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusSuspended:
		return true
	}
	return false
}

// IsActive is the is_active flag that must accompany the status.
func (s Status) IsActive() bool {
	return s == StatusActive
}

// User represents an application user record as stored in the
// `users` table.  PasswordHash never leaves the service layer; handlers
// render users through a sanitized view.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  Name         – display name.
//  Role         – admin, developer or user.
//  Status       – active, inactive, pending or suspended.
//  IsActive     – mirrors Status == active.
//  LastLogin    – time of the last successful login (nullable).
//  LoginCount   – number of successful logins.
//  LastIP       – client address of the last login (nullable).
type User struct {
	ID           uint64     // users.id
	Email        string     // users.email
	PasswordHash string     // users.password_hash
	Name         string     // users.name
	Role         Role       // users.role
	Status       Status     // users.status
	IsActive     bool       // users.is_active
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
	LastLogin    *time.Time // users.last_login
	LoginCount   int        // users.login_count
	LastIP       *string    // users.last_ip
}

// CanAccessAdmin reports whether the user may sign in to the admin area.
func (u *User) CanAccessAdmin() bool {
	return u.IsActive && (u.Role == RoleAdmin || u.Role == RoleDeveloper)
}

// TokenKind distinguishes short-lived access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)
