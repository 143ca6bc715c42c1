package session

import "fmt"

// ErrorKind classifies session failures. Kinds are stable strings exposed to
// the presentation shell.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindFetch             ErrorKind = "FetchError"
	KindParse             ErrorKind = "ParseError"
	KindTimeout           ErrorKind = "Timeout"
	KindInvalidInput      ErrorKind = "InvalidInput"
	KindUnavailable       ErrorKind = "Unavailable"
	KindContractViolation ErrorKind = "ContractViolation"
	KindStore             ErrorKind = "StoreError"
)

// Error is the structured error recorded on a failed session. Raw collaborator
// errors never cross the API boundary; they are captured here with a stable
// kind and a human-readable message.
type Error struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, message string, retryable bool, cause error) *Error {
	return &Error{Kind: kind, Message: message, Retryable: retryable, Cause: cause}
}

// ErrInvalidState is returned by Retry when the session is not in a retryable
// terminal state.
type ErrInvalidState struct {
	State State
}

func (e *ErrInvalidState) Error() string {
	return fmt.Sprintf("operation not permitted in state %q", e.State)
}

// ErrSessionNotFound is returned for unknown session ids.
type ErrSessionNotFound struct {
	ID string
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}

// ErrNoResult is returned by GetResult when the session has not succeeded.
type ErrNoResult struct {
	State State
}

func (e *ErrNoResult) Error() string {
	return fmt.Sprintf("no result available in state %q", e.State)
}
