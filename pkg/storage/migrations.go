package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// pkClause is substituted per engine so the same migration set runs on
// both Postgres and SQLite.
const pkClause = "__PK__"

// GetMigrations returns all catalog migrations for the given engine type
func GetMigrations(engine string) []Migration {
	pk := "BIGSERIAL PRIMARY KEY"
	if engine == "sqlite" {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	migrations := []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id __PK__,
					username VARCHAR(150) NOT NULL UNIQUE,
					email VARCHAR(255) NOT NULL UNIQUE,
					password_hash VARCHAR(255) NOT NULL,
					first_name VARCHAR(150) NOT NULL DEFAULT '',
					last_name VARCHAR(150) NOT NULL DEFAULT '',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					date_joined TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					last_login_at TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
			`,
		},
		{
			Version:     2,
			Description: "Create user_profiles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_profiles (
					id __PK__,
					user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE RESTRICT,
					role VARCHAR(20) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				);

				CREATE INDEX IF NOT EXISTS idx_user_profiles_role ON user_profiles(role);
			`,
		},
		{
			Version:     3,
			Description: "Create sessions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS sessions (
					token VARCHAR(64) PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					expires_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
				CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
			`,
		},
		{
			Version:     4,
			Description: "Create categories table",
			SQL: `
				CREATE TABLE IF NOT EXISTS categories (
					id __PK__,
					name VARCHAR(100) NOT NULL,
					description TEXT,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_on TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					created_by BIGINT NOT NULL REFERENCES users(id) ON DELETE RESTRICT
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_lower ON categories(LOWER(name));
				CREATE INDEX IF NOT EXISTS idx_categories_created_on ON categories(created_on);
			`,
		},
		{
			Version:     5,
			Description: "Create subcategories table",
			SQL: `
				CREATE TABLE IF NOT EXISTS subcategories (
					id __PK__,
					category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					name VARCHAR(100) NOT NULL,
					description TEXT,
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_on TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					created_by BIGINT NOT NULL REFERENCES users(id) ON DELETE RESTRICT
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_subcategories_category_name_lower
					ON subcategories(category_id, LOWER(name));
				CREATE INDEX IF NOT EXISTS idx_subcategories_category_id ON subcategories(category_id);
			`,
		},
		{
			Version:     6,
			Description: "Create products table",
			SQL: `
				CREATE TABLE IF NOT EXISTS products (
					id __PK__,
					name VARCHAR(200) NOT NULL,
					category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					subcategory_id BIGINT NOT NULL REFERENCES subcategories(id) ON DELETE CASCADE,
					description TEXT,
					price NUMERIC(10,2) NOT NULL CHECK (price >= 0),
					stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
					created_by BIGINT NOT NULL REFERENCES users(id) ON DELETE RESTRICT
				);

				CREATE INDEX IF NOT EXISTS idx_products_category_id ON products(category_id);
				CREATE INDEX IF NOT EXISTS idx_products_subcategory_id ON products(subcategory_id);
				CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);
				CREATE INDEX IF NOT EXISTS idx_products_created_by ON products(created_by);
			`,
		},
	}

	for i := range migrations {
		migrations[i].SQL = strings.ReplaceAll(migrations[i].SQL, pkClause, pk)
	}
	return migrations
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB, engine string) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS catalog_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM catalog_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations(engine) {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO catalog_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
