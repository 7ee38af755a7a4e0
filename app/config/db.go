package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewDB opens a Postgres connection pool over the pgx stdlib driver and
// verifies connectivity before returning.
func NewDB(dsn string, maxOpenConns, maxIdleConns int, maxIdleTime string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DB DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	idle, err := time.ParseDuration(maxIdleTime)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid max idle time %q: %w", maxIdleTime, err)
	}
	db.SetConnMaxIdleTime(idle)
	db.SetConnMaxLifetime(60 * time.Minute)

	// fail fast
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
