package auth

import (
	"errors"
	"time"

	"github.com/RAXITGAJERA/product-management/pkg/rbac"
)

var (
	// ErrInvalidCredentials is returned when the username or password is wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when the requested username already exists.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned when the requested email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInactiveUser is returned when a disabled account tries to log in.
	ErrInactiveUser = errors.New("user account is inactive")
	// ErrSessionNotFound is returned when a session token is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
)

// User is an account that can log in to the catalog.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	IsActive     bool       `json:"is_active"`
	DateJoined   time.Time  `json:"date_joined"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Profile binds a user to exactly one catalog role.
type Profile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a server-side login session keyed by an opaque token.
type Session struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      rbac.Role `json:"role"`
}

// ProfileUpdate carries the mutable account fields.
type ProfileUpdate struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ProfileStats summarizes accounts by role.
type ProfileStats struct {
	TotalUsers int64            `json:"total_users"`
	ByRole     map[string]int64 `json:"by_role"`
}
