package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/baechuer/real-time-ressys/services/registration-service/internal/logger"
)

var ErrEmptyDSN = errors.New("empty DB DSN")

const dbPingTimeout = 3 * time.Second

// NewDB opens the pgx pool behind the user store and pings it once.
func NewDB(dsn string, debug bool) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	if err := validatePostgresDSN(dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// registration does two lookups and at most one insert per request
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(60 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if debug {
		var who, dbname, ver string
		var hasUsers bool
		_ = db.QueryRowContext(ctx,
			"SELECT current_user, current_database(), current_setting('server_version'), to_regclass('users') IS NOT NULL",
		).Scan(&who, &dbname, &ver, &hasUsers)

		ev := logger.Logger.Info()
		if !hasUsers {
			ev = logger.Logger.Warn()
		}
		ev.Str("user", who).
			Str("db", dbname).
			Str("version", ver).
			Bool("users_table", hasUsers).
			Msg("db connected")
	}

	return db, nil
}
