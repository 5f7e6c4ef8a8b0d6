package auth

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAXITGAJERA/product-management/pkg/observability"
	"github.com/RAXITGAJERA/product-management/pkg/rbac"
	"github.com/RAXITGAJERA/product-management/pkg/storage"
)

func sqliteStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := storage.Open(storage.Config{
		Type:       "sqlite",
		SQLitePath: ":memory:",
		MaxConns:   1,
		MinConns:   1,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(context.Background(), db, "sqlite"))

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewStore(db, logger), db
}

func TestEnsureProfileConflictTolerant(t *testing.T) {
	store, db := sqliteStore(t)
	ctx := context.Background()

	_, err := db.Exec(
		"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3)",
		"newbie", "newbie@example.com", "x")
	require.NoError(t, err)

	role, created, err := store.EnsureProfile(ctx, 1)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, rbac.RoleCustomer, role)

	// A second call hits ON CONFLICT DO NOTHING and keeps the one row.
	role, created, err = store.EnsureProfile(ctx, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rbac.RoleCustomer, role)

	var count int64
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM user_profiles").Scan(&count))
	assert.Equal(t, int64(1), count)
}

func TestRegisterAndAuthenticateAgainstSQLite(t *testing.T) {
	store, _ := sqliteStore(t)
	ctx := context.Background()

	user, err := store.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret-password",
		Role:     rbac.RoleSeller,
	})
	require.NoError(t, err)

	got, err := store.Authenticate(ctx, "alice", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	profile, err := store.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleSeller, profile.Role)

	// The unique index on username is live, so a duplicate rolls back.
	_, err = store.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "secret-password",
		Role:     rbac.RoleSeller,
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}
