package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/RAXITGAJERA/product-management/pkg/observability"
	"github.com/RAXITGAJERA/product-management/pkg/rbac"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "catalog_session"

// SessionManager creates, resolves, and expires login sessions.
type SessionManager struct {
	db     *sql.DB
	ttl    time.Duration
	logger *observability.Logger
	cron   *cron.Cron
}

// NewSessionManager creates a session manager with the given TTL.
func NewSessionManager(db *sql.DB, ttl time.Duration, logger *observability.Logger) *SessionManager {
	return &SessionManager{db: db, ttl: ttl, logger: logger}
}

// newToken produces an opaque session token. Two UUIDs keep the token
// outside practical guessing range.
func newToken() string {
	return uuid.NewString() + uuid.NewString()[:8]
}

// Create opens a session for the user.
func (m *SessionManager) Create(ctx context.Context, userID int64) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		Token:     newToken(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, session.Token, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Resolve maps a session token to the subject it authenticates. The
// role comes from the user's profile and is empty when no profile
// exists yet. Expired or unknown tokens return ErrSessionNotFound.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*rbac.Subject, error) {
	var subject rbac.Subject
	var role sql.NullString
	var expiresAt time.Time

	err := m.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, p.role, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		LEFT JOIN user_profiles p ON p.user_id = u.id
		WHERE s.token = $1 AND u.is_active = TRUE
	`, token).Scan(&subject.UserID, &subject.Username, &role, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	if !time.Now().UTC().Before(expiresAt) {
		return nil, ErrSessionNotFound
	}
	if role.Valid {
		subject.Role = rbac.Role(role.String)
	}
	return &subject, nil
}

// Delete removes a session, logging the user out.
func (m *SessionManager) Delete(ctx context.Context, token string) error {
	if _, err := m.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE token = $1", token,
	); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteForUser removes every session belonging to a user. Used after
// password changes.
func (m *SessionManager) DeleteForUser(ctx context.Context, userID int64) error {
	if _, err := m.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE user_id = $1", userID,
	); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and returns how
// many were removed.
func (m *SessionManager) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := m.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= $1", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return deleted, nil
}

// StartSweeper schedules a periodic expired-session sweep. schedule is
// a cron expression such as "@every 1h".
func (m *SessionManager) StartSweeper(schedule string) error {
	if m.cron != nil {
		return fmt.Errorf("sweeper already started")
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		deleted, err := m.DeleteExpired(ctx)
		if err != nil {
			m.logger.WithError(err).Error("session sweep failed")
			return
		}
		if deleted > 0 {
			m.logger.WithField("deleted", deleted).Info("swept expired sessions")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	c.Start()
	m.cron = c
	return nil
}

// StopSweeper stops the sweep and waits for a running sweep to finish.
func (m *SessionManager) StopSweeper() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
		m.cron = nil
	}
}
