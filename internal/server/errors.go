// Package server provides the HTTP REST API for the resume tailoring service.
package server

import (
	"errors"
	"net/http"

	"github.com/hirekit/tailor/internal/documents"
	"github.com/hirekit/tailor/internal/history"
	"github.com/hirekit/tailor/internal/session"
)

// HTTPStatus returns the appropriate HTTP status code for an error surfaced
// by a synchronous API call. Pipeline failures inside a running session are
// not errors here; they are reported through the session status.
func HTTPStatus(err error) int {
	var notFound *session.ErrSessionNotFound
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}
	var invalidState *session.ErrInvalidState
	if errors.As(err, &invalidState) {
		return http.StatusConflict
	}
	var noResult *session.ErrNoResult
	if errors.As(err, &noResult) {
		return http.StatusConflict
	}
	var unsupported *documents.ErrUnsupportedMediaType
	if errors.As(err, &unsupported) {
		return http.StatusUnsupportedMediaType
	}
	if errors.Is(err, documents.ErrNotFound) || errors.Is(err, history.ErrNotFound) {
		return http.StatusNotFound
	}

	var sessErr *session.Error
	if errors.As(err, &sessErr) {
		switch sessErr.Kind {
		case session.KindValidation, session.KindInvalidInput:
			return http.StatusBadRequest
		case session.KindUnavailable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
