package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirekit/tailor/internal/types"
)

// PostgresStore persists history entries in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Connect establishes a connection pool and verifies it.
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Append inserts the entry. The primary-key conflict clause makes replayed
// writes for the same session a no-op.
func (s *PostgresStore) Append(ctx context.Context, entry types.HistoryEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO history_entries (id, user_id, job_title, company, completed_at, ats_score)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		entry.ID, entry.UserID, entry.JobTitle, entry.Company, entry.CompletedAt, entry.ATSScore,
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// List returns the user's entries, most recent first.
func (s *PostgresStore) List(ctx context.Context, userID string) ([]types.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, job_title, company, completed_at, ats_score
		 FROM history_entries
		 WHERE user_id = $1
		 ORDER BY completed_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}
	defer rows.Close()

	var entries []types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.JobTitle, &e.Company, &e.CompletedAt, &e.ATSScore); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history entries: %w", err)
	}
	return entries, nil
}

// Get returns the entry for id, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (types.HistoryEntry, error) {
	var e types.HistoryEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, job_title, company, completed_at, ats_score
		 FROM history_entries
		 WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.UserID, &e.JobTitle, &e.Company, &e.CompletedAt, &e.ATSScore)
	if err != nil {
		if err == pgx.ErrNoRows {
			return types.HistoryEntry{}, ErrNotFound
		}
		return types.HistoryEntry{}, fmt.Errorf("failed to get history entry: %w", err)
	}
	return e, nil
}
