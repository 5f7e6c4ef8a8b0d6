package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMigrationsEngineSubstitution(t *testing.T) {
	for _, m := range GetMigrations("postgres") {
		assert.NotContains(t, m.SQL, pkClause, "migration %d", m.Version)
	}

	pg := GetMigrations("postgres")
	assert.Contains(t, pg[0].SQL, "BIGSERIAL PRIMARY KEY")

	lite := GetMigrations("sqlite")
	assert.Contains(t, lite[0].SQL, "INTEGER PRIMARY KEY AUTOINCREMENT")
	assert.NotContains(t, lite[0].SQL, "BIGSERIAL")
}

func TestGetMigrationsVersionsAreSequential(t *testing.T) {
	migrations := GetMigrations("postgres")
	require.NotEmpty(t, migrations)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Description)
		assert.True(t, strings.Contains(m.SQL, "CREATE TABLE"))
	}
}

func TestRunMigrationsAppliesPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS catalog_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM catalog_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	for _, m := range GetMigrations("postgres") {
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO catalog_migrations").
			WithArgs(m.Version, m.Description).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	require.NoError(t, RunMigrations(context.Background(), db, "postgres"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsSkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	migrations := GetMigrations("postgres")

	applied := sqlmock.NewRows([]string{"version"})
	for _, m := range migrations {
		applied.AddRow(m.Version)
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS catalog_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM catalog_migrations").
		WillReturnRows(applied)

	// Nothing else runs when every version is recorded.
	require.NoError(t, RunMigrations(context.Background(), db, "postgres"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS catalog_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM catalog_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = RunMigrations(context.Background(), db, "postgres")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigDriverAndDSN(t *testing.T) {
	pg := Config{Type: "postgres", PostgresURL: "postgres://u:p@localhost/catalog"}
	assert.Equal(t, "postgres", pg.DriverName())
	assert.Equal(t, "postgres://u:p@localhost/catalog", pg.DSN())

	lite := Config{Type: "sqlite", SQLitePath: "catalog.db"}
	assert.Equal(t, "sqlite3", lite.DriverName())
	assert.Equal(t, "catalog.db?_foreign_keys=on", lite.DSN())
}
