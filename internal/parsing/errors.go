// Package parsing extracts structured resume content from uploaded documents.
package parsing

import "fmt"

// ParseError represents an unsupported or corrupt resume document. It is
// fatal for the session: the user must upload a different file.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
