package parsing

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hirekit/tailor/internal/documents"
	"github.com/hirekit/tailor/internal/types"
)

// StoreParser resolves document refs against a documents.Store and parses the
// stored content. It is the production ResumeParser wiring.
type StoreParser struct {
	docs documents.Store
}

// NewStoreParser wires a parser over the given document store.
func NewStoreParser(docs documents.Store) *StoreParser {
	return &StoreParser{docs: docs}
}

// ParseResume loads the referenced document and structures it.
func (p *StoreParser) ParseResume(ctx context.Context, ref uuid.UUID) (*types.StructuredResume, error) {
	doc, err := p.docs.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return nil, &ParseError{Message: "resume document not found", Cause: err}
		}
		return nil, &ParseError{Message: "failed to load resume document", Cause: err}
	}
	return ParseResume(ctx, doc)
}
