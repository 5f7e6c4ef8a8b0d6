package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAXITGAJERA/product-management/pkg/observability"
	"github.com/RAXITGAJERA/product-management/pkg/rbac"
)

func testStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewStore(db, logger), mock
}

func userRows(t *testing.T, password string, active bool) *sqlmock.Rows {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)

	return sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "first_name", "last_name",
		"is_active", "date_joined", "last_login_at",
	}).AddRow(int64(1), "alice", "alice@example.com", hash, "Alice", "", active, time.Now(), nil)
}

func TestValidateRegisterInput(t *testing.T) {
	t.Run("accepts valid input", func(t *testing.T) {
		fields := ValidateRegisterInput(RegisterInput{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "longenough",
			Role:     rbac.RoleSeller,
		})
		assert.Empty(t, fields)
	})

	t.Run("flags every bad field", func(t *testing.T) {
		fields := ValidateRegisterInput(RegisterInput{
			Username: "  ",
			Email:    "not-an-email",
			Password: "short",
			Role:     rbac.Role("root"),
		})
		assert.Contains(t, fields, "username")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password")
		assert.Contains(t, fields, "role")
	})

	t.Run("empty role is allowed and defaults later", func(t *testing.T) {
		fields := ValidateRegisterInput(RegisterInput{
			Username: "bob",
			Email:    "bob@example.com",
			Password: "longenough",
		})
		assert.Empty(t, fields)
	})
}

func TestAuthenticate(t *testing.T) {
	store, mock := testStore(t)

	mock.ExpectQuery("FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(userRows(t, "secret-password", true))
	mock.ExpectExec("UPDATE users SET last_login_at").
		WithArgs(sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := store.Authenticate(context.Background(), "alice", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotNil(t, user.LastLoginAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticateWrongPassword(t *testing.T) {
	store, mock := testStore(t)

	mock.ExpectQuery("FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(userRows(t, "secret-password", true))

	_, err := store.Authenticate(context.Background(), "alice", "guess")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticateUnknownUser(t *testing.T) {
	store, mock := testStore(t)

	mock.ExpectQuery("FROM users WHERE username").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Authenticate(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	store, mock := testStore(t)

	mock.ExpectQuery("FROM users WHERE username").
		WithArgs("alice").
		WillReturnRows(userRows(t, "secret-password", false))

	_, err := store.Authenticate(context.Background(), "alice", "secret-password")
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestRegister(t *testing.T) {
	store, mock := testStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("bob", "bob@example.com", sqlmock.AnyArg(), "Bob", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "date_joined"}).AddRow(int64(2), time.Now()))
	mock.ExpectExec("INSERT INTO user_profiles").
		WithArgs(int64(2), "seller").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	user, err := store.Register(context.Background(), RegisterInput{
		Username:  "bob",
		Email:     "Bob@Example.com",
		Password:  "longenough",
		FirstName: "Bob",
		Role:      rbac.RoleSeller,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), user.ID)
	// Email is normalized to lower case.
	assert.Equal(t, "bob@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	store, mock := testStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := store.Register(context.Background(), RegisterInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "longenough",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterRejectsInvalidRole(t *testing.T) {
	store, _ := testStore(t)

	_, err := store.Register(context.Background(), RegisterInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "longenough",
		Role:     rbac.Role("root"),
	})
	assert.Error(t, err)
}

func TestEnsureProfileCreates(t *testing.T) {
	store, mock := testStore(t)

	mock.ExpectExec("INSERT INTO user_profiles").
		WithArgs(int64(5), "customer").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM user_profiles WHERE user_id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role", "created_at"}).
			AddRow(int64(10), int64(5), "customer", time.Now()))

	role, created, err := store.EnsureProfile(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, rbac.RoleCustomer, role)
}

func TestEnsureProfileIdempotent(t *testing.T) {
	store, mock := testStore(t)

	// The conflict clause makes the insert a no-op for existing profiles,
	// so the stored role wins over the customer default.
	mock.ExpectExec("INSERT INTO user_profiles").
		WithArgs(int64(5), "customer").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM user_profiles WHERE user_id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role", "created_at"}).
			AddRow(int64(10), int64(5), "seller", time.Now()))

	role, created, err := store.EnsureProfile(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rbac.RoleSeller, role)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	store, mock := testStore(t)

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(userRows(t, "real-password", true))

	err := store.ChangePassword(context.Background(), 1, "wrong", "new-password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStats(t *testing.T) {
	store, mock := testStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(12)))
	mock.ExpectQuery("FROM user_profiles GROUP BY role").
		WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).
			AddRow("admin", int64(1)).
			AddRow("seller", int64(3)).
			AddRow("customer", int64(8)))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.TotalUsers)
	assert.Equal(t, int64(3), stats.ByRole["seller"])
}
