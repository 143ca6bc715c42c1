package documents

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists uploaded documents in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Put inserts the document. Re-uploads with the same id overwrite content.
func (s *PostgresStore) Put(ctx context.Context, doc Document) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO resume_documents (id, user_id, file_name, media_type, content, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET file_name = $3, media_type = $4, content = $5`,
		doc.ID, doc.UserID, doc.FileName, doc.MediaType, doc.Content, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

// Get returns the document for id, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	var doc Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, file_name, media_type, content, uploaded_at
		 FROM resume_documents
		 WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.UserID, &doc.FileName, &doc.MediaType, &doc.Content, &doc.UploadedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}
