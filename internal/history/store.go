// Package history persists completed tailoring sessions for the user's
// past-resumes listing.
package history

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hirekit/tailor/internal/types"
)

// ErrNotFound is returned when no entry exists for the requested id.
var ErrNotFound = errors.New("history entry not found")

// Store is the narrow interface the session core writes through. Append is
// idempotent on entry id: a second append with the same id is a no-op, not an
// error. List is restartable and returns entries newest first.
type Store interface {
	Append(ctx context.Context, entry types.HistoryEntry) error
	List(ctx context.Context, userID string) ([]types.HistoryEntry, error)
	Get(ctx context.Context, id uuid.UUID) (types.HistoryEntry, error)
}
