package documents

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps uploaded documents in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]Document
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[uuid.UUID]Document)}
}

// Put stores the document.
func (s *MemoryStore) Put(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[doc.ID] = doc
	return nil
}

// Get returns the document for id, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}
