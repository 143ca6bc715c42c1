// Package documents stores uploaded resume files and hands out the opaque
// references a tailoring submission carries.
package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no document exists for the requested ref.
var ErrNotFound = errors.New("document not found")

// ErrUnsupportedMediaType is returned for uploads outside the allow-list.
type ErrUnsupportedMediaType struct {
	MediaType string
}

func (e *ErrUnsupportedMediaType) Error() string {
	return fmt.Sprintf("unsupported media type: %s", e.MediaType)
}

// MediaTypePDF and MediaTypeText are the accepted resume formats.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeText = "text/plain"
)

// Document is an uploaded resume file.
type Document struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id"`
	FileName   string    `json:"file_name"`
	MediaType  string    `json:"media_type"`
	Content    []byte    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Store persists uploaded resumes.
type Store interface {
	Put(ctx context.Context, doc Document) error
	Get(ctx context.Context, id uuid.UUID) (Document, error)
}

// ValidateMediaType rejects uploads outside the allow-list.
func ValidateMediaType(mediaType string) error {
	switch mediaType {
	case MediaTypePDF, MediaTypeText:
		return nil
	default:
		return &ErrUnsupportedMediaType{MediaType: mediaType}
	}
}
