package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/RAXITGAJERA/product-management/pkg/observability"
	"github.com/RAXITGAJERA/product-management/pkg/rbac"
	"github.com/RAXITGAJERA/product-management/pkg/storage"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateRegisterInput returns per-field validation messages, or an
// empty map when the input is acceptable. Uniqueness is checked by the
// database, not here.
func ValidateRegisterInput(in RegisterInput) map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(in.Username) == "" {
		fields["username"] = "username is required"
	}
	if !emailPattern.MatchString(in.Email) {
		fields["email"] = "a valid email address is required"
	}
	if len(in.Password) < MinPasswordLength {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	if in.Role != "" && !in.Role.Valid() {
		fields["role"] = "role must be one of admin, seller, customer"
	}
	return fields
}

// Store persists users, profiles, and account state.
type Store struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewStore creates a user store.
func NewStore(db *sql.DB, logger *observability.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Register creates a user and its role profile in one transaction. An
// empty role defaults to customer.
func (s *Store) Register(ctx context.Context, in RegisterInput) (*User, error) {
	role := in.Role
	if role == "" {
		role = rbac.RoleCustomer
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", in.Role)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	user := &User{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(strings.ToLower(in.Email)),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		IsActive:  true,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, date_joined
	`, user.Username, user.Email, hash, user.FirstName, user.LastName).Scan(&user.ID, &user.DateJoined)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			// Release the tx first: on SQLite the pool has a single
			// connection and the classification query would block on it.
			tx.Rollback()
			return nil, s.classifyTakenError(ctx, user.Username)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, role) VALUES ($1, $2)
	`, user.ID, string(role)); err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(role),
	}).Info("registered user")
	return user, nil
}

// classifyTakenError decides which unique constraint fired so the
// caller can report the right field.
func (s *Store) classifyTakenError(ctx context.Context, username string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)", username,
	).Scan(&exists)
	if err == nil && exists {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}

// Authenticate verifies credentials and stamps the login time.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		"UPDATE users SET last_login_at = $1 WHERE id = $2", now, user.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to record login time: %w", err)
	}
	user.LastLoginAt = &now
	return user, nil
}

const userColumns = `id, username, email, password_hash, first_name, last_name, is_active, date_joined, last_login_at`

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.IsActive,
		&user.DateJoined, &user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// GetUserByID fetches a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetUserByUsername fetches a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username)
	return scanUser(row)
}

// GetProfile fetches the role profile for a user.
func (s *Store) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, role, created_at FROM user_profiles WHERE user_id = $1
	`, userID).Scan(&profile.ID, &profile.UserID, &role, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	profile.Role = rbac.Role(role)
	return &profile, nil
}

// EnsureProfile guarantees the user has a role profile, creating a
// customer profile when none exists. The insert is a no-op under
// concurrent calls for the same user, so exactly one profile survives.
// It returns the user's role and whether a profile was created.
func (s *Store) EnsureProfile(ctx context.Context, userID int64) (rbac.Role, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, string(rbac.RoleCustomer))
	if err != nil {
		return "", false, fmt.Errorf("failed to ensure profile: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to read insert result: %w", err)
	}

	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", false, err
	}
	return profile.Role, inserted > 0, nil
}

// UpdateProfile updates the mutable account fields.
func (s *Store) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(update.Email))
	if !emailPattern.MatchString(email) {
		return nil, fmt.Errorf("invalid email %q", update.Email)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = $1, first_name = $2, last_name = $3 WHERE id = $4
	`, email, update.FirstName, update.LastName, userID)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, ErrUserNotFound
	}
	return s.GetUserByID(ctx, userID)
}

// ChangePassword verifies the current password before setting a new one.
func (s *Store) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if len(next) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1 WHERE id = $2", hash, userID,
	); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	s.logger.WithField("user_id", userID).Info("password changed")
	return nil
}

// Stats returns account counts grouped by role.
func (s *Store) Stats(ctx context.Context) (*ProfileStats, error) {
	stats := &ProfileStats{ByRole: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users",
	).Scan(&stats.TotalUsers); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, COUNT(*) FROM user_profiles GROUP BY role")
	if err != nil {
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role string
		var count int64
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("failed to scan profile count: %w", err)
		}
		stats.ByRole[role] = count
	}
	return stats, rows.Err()
}

// SeedDefaultUsers creates one account per role for a fresh
// deployment. Existing accounts are left untouched.
func (s *Store) SeedDefaultUsers(ctx context.Context) error {
	defaults := []RegisterInput{
		{Username: "admin", Email: "admin@example.com", Password: "admin12345", FirstName: "Admin", Role: rbac.RoleAdmin},
		{Username: "seller", Email: "seller@example.com", Password: "seller12345", FirstName: "Seller", Role: rbac.RoleSeller},
		{Username: "customer", Email: "customer@example.com", Password: "customer12345", FirstName: "Customer", Role: rbac.RoleCustomer},
	}
	for _, in := range defaults {
		_, err := s.Register(ctx, in)
		switch {
		case err == nil:
			s.logger.WithField("username", in.Username).Info("seeded default user")
		case errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken):
			s.logger.WithField("username", in.Username).Debug("default user already exists")
		default:
			return fmt.Errorf("failed to seed user %s: %w", in.Username, err)
		}
	}
	return nil
}
