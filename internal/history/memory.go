package history

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hirekit/tailor/internal/types"
)

// MemoryStore keeps history entries in memory and is safe for concurrent use.
// It backs tests and database-less deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]types.HistoryEntry
	byUser map[string][]uuid.UUID
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[uuid.UUID]types.HistoryEntry),
		byUser: make(map[string][]uuid.UUID),
	}
}

// Append stores the entry unless one with the same id already exists.
func (s *MemoryStore) Append(ctx context.Context, entry types.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[entry.ID]; ok {
		return nil
	}
	s.byID[entry.ID] = entry
	s.byUser[entry.UserID] = append(s.byUser[entry.UserID], entry.ID)
	return nil
}

// List returns the user's entries, most recent first.
func (s *MemoryStore) List(ctx context.Context, userID string) ([]types.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byUser[userID]
	entries := make([]types.HistoryEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, s.byID[id])
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CompletedAt.After(entries[j].CompletedAt)
	})
	return entries, nil
}

// Get returns the entry for id, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (types.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return types.HistoryEntry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byID[id]
	if !ok {
		return types.HistoryEntry{}, ErrNotFound
	}
	return entry, nil
}
