// Package db provides PostgreSQL database access for the tailoring service.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Pool exposes the underlying pool for the store packages.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates the schema when it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS resume_documents (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			media_type TEXT NOT NULL,
			content BYTEA NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history_entries (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			job_title TEXT NOT NULL,
			company TEXT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL,
			ats_score INT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_entries_user
			ON history_entries (user_id, completed_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
