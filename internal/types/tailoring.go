// Package types defines the shared data model for the tailoring service.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeKind annotates how a resume item differs from the original.
type ChangeKind string

const (
	ChangeUnchanged ChangeKind = "unchanged"
	ChangeInserted  ChangeKind = "inserted"
	ChangeReplaced  ChangeKind = "replaced"
)

// ResumeItem is a single line of resume content (a bullet, a skill list, a
// heading value) together with its change annotation. Original is empty for
// unchanged and inserted items.
type ResumeItem struct {
	Text     string     `json:"text"`
	Change   ChangeKind `json:"change"`
	Original string     `json:"original,omitempty"`
}

// ResumeSection groups items under a section heading (Experience, Skills, ...).
type ResumeSection struct {
	Heading string       `json:"heading"`
	Items   []ResumeItem `json:"items"`
}

// StructuredResume is the parsed representation of an uploaded resume. The
// optimized resume produced by the engine mirrors this schema with change
// annotations filled in.
type StructuredResume struct {
	Name     string          `json:"name,omitempty"`
	Headline string          `json:"headline,omitempty"`
	Sections []ResumeSection `json:"sections"`
}

// JobRequirements is the normalized form of a fetched job posting.
type JobRequirements struct {
	RoleTitle    string   `json:"role_title"`
	Company      string   `json:"company"`
	Requirements []string `json:"requirements"`
	NiceToHave   []string `json:"nice_to_have,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// Submission is the immutable input to a tailoring attempt. A new attempt via
// retry reuses the same Submission; a new upload creates a new one.
type Submission struct {
	SessionID   uuid.UUID `json:"session_id"`
	UserID      string    `json:"user_id"`
	JobURL      string    `json:"job_url"`
	DocumentRef uuid.UUID `json:"document_ref"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// TailoringResult is the output of a successful attempt. Created once from the
// engine's response and never mutated.
type TailoringResult struct {
	OriginalScore       int               `json:"original_score"`
	OptimizedScore      int               `json:"optimized_score"`
	OptimizedResume     *StructuredResume `json:"optimized_resume"`
	MatchedRequirements []string          `json:"matched_requirements"`
}

// Validate range-checks the scores. Values outside 0-100 mean the engine broke
// its contract; callers treat that as a fatal session error, not a result.
func (r *TailoringResult) Validate() error {
	if r.OriginalScore < 0 || r.OriginalScore > 100 {
		return fmt.Errorf("original score %d out of range [0,100]", r.OriginalScore)
	}
	if r.OptimizedScore < 0 || r.OptimizedScore > 100 {
		return fmt.Errorf("optimized score %d out of range [0,100]", r.OptimizedScore)
	}
	if r.OptimizedResume == nil {
		return fmt.Errorf("optimized resume is missing")
	}
	return nil
}

// HistoryEntry is the durable projection of a completed session shown in the
// user's past-resumes list.
type HistoryEntry struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	JobTitle    string    `json:"job_title"`
	Company     string    `json:"company"`
	CompletedAt time.Time `json:"completed_at"`
	ATSScore    int       `json:"ats_score"`
}
