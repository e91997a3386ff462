package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the users table and its unique constraints if missing.
// It is idempotent and safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,

  is_verified BOOLEAN NOT NULL DEFAULT FALSE,
  password_reset_token TEXT NULL,
  password_reset_expires TIMESTAMPTZ NULL,

  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

  CONSTRAINT ` + ConstraintUsernameKey + ` UNIQUE (username),
  CONSTRAINT ` + ConstraintEmailKey + ` UNIQUE (email)
);`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS password_reset_token TEXT NULL;`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS password_reset_expires TIMESTAMPTZ NULL;`,
	}

	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate users (step %d): %w", i, err)
		}
	}
	return nil
}
