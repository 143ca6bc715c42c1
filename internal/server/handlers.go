package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirekit/tailor/internal/documents"
	"github.com/hirekit/tailor/internal/session"
)

// maxUploadBytes bounds resume uploads.
const maxUploadBytes = 10 << 20

// createSessionRequest is the submission payload.
type createSessionRequest struct {
	JobURL     string `json:"job_url" validate:"required,url"`
	DocumentID string `json:"document_id" validate:"required,uuid"`
}

// statusResponse augments the session snapshot with the screen the client
// should show.
type statusResponse struct {
	session.Status
	Screen session.Screen `json:"screen"`
}

// handleUploadDocument accepts a multipart resume upload and returns the
// document ref a submission carries.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close()

	mediaType := detectMediaType(header.Header.Get("Content-Type"), header.Filename)
	if err := documents.ValidateMediaType(mediaType); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(content) > maxUploadBytes {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
		return
	}
	if len(content) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	doc := documents.Document{
		ID:         uuid.New(),
		UserID:     s.userID(r),
		FileName:   header.Filename,
		MediaType:  mediaType,
		Content:    content,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.docs.Put(r.Context(), doc); err != nil {
		s.log.Error("document store failed", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	s.jsonResponse(w, http.StatusCreated, map[string]string{"document_id": doc.ID.String()})
}

// handleCreateSession starts a tailoring session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "job_url and document_id are required and must be well-formed")
		return
	}
	docRef, err := uuid.Parse(req.DocumentID)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "document_id must be a UUID")
		return
	}

	sessionID, err := s.manager.Submit(r.Context(), s.userID(r), req.JobURL, docRef)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	status, err := s.manager.GetStatus(sessionID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, statusResponse{
		Status: status,
		Screen: session.ScreenFor(status.State),
	})
}

// handleSessionStatus returns the session snapshot.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	status, err := s.manager.GetStatus(id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, statusResponse{
		Status: status,
		Screen: session.ScreenFor(status.State),
	})
}

// handleCancelSession cancels an in-flight session.
func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.manager.Cancel(id); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	status, err := s.manager.GetStatus(id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, statusResponse{
		Status: status,
		Screen: session.ScreenFor(status.State),
	})
}

// handleRetrySession re-runs a failed session.
func (s *Server) handleRetrySession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.manager.Retry(id); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	status, err := s.manager.GetStatus(id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusAccepted, statusResponse{
		Status: status,
		Screen: session.ScreenFor(status.State),
	})
}

// handleSessionResult returns the tailoring result of a succeeded session.
func (s *Server) handleSessionResult(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	result, err := s.manager.GetResult(id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleSessionEvents streams session transitions as Server-Sent Events.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	events, cancel, err := s.manager.Subscribe(id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	defer cancel()

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Snapshot first so late subscribers see the current state immediately.
	if status, err := s.manager.GetStatus(id); err == nil {
		sse.WriteEvent("status", statusResponse{ //nolint:errcheck
			Status: status,
			Screen: session.ScreenFor(status.State),
		})
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				if status, err := s.manager.GetStatus(id); err == nil {
					sse.WriteComplete(id.String(), string(status.State))
				}
				return
			}
			// Same payload shape as the snapshot above.
			resp := statusResponse{
				Status: session.Status{
					SessionID:       ev.SessionID,
					State:           ev.State,
					ProgressPercent: ev.ProgressPercent,
					StatusMessage:   ev.StatusMessage,
					AttemptCount:    ev.AttemptCount,
					Error:           ev.Error,
				},
				Screen: session.ScreenFor(ev.State),
			}
			if err := sse.WriteEvent("status", resp); err != nil {
				return
			}
		}
	}
}

// handleListHistory returns the user's completed sessions, newest first.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.manager.ListHistory(r.Context(), s.userID(r))
	if err != nil {
		s.log.Error("history list failed", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"entries": entries})
}

// handleGetHistory returns one history entry. Entries belonging to another
// user read as missing.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	entry, err := s.manager.GetHistoryEntry(r.Context(), id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if entry.UserID != s.userID(r) {
		s.errorResponse(w, http.StatusNotFound, "history entry not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, entry)
}

// sessionID parses the {id} path segment; a bad value answers the request.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// detectMediaType resolves the upload's media type from the part header,
// falling back to the file extension.
func detectMediaType(contentType, filename string) string {
	if contentType != "" {
		if parsed, _, err := mime.ParseMediaType(contentType); err == nil && parsed != "application/octet-stream" {
			return parsed
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return documents.MediaTypePDF
	case ".txt":
		return documents.MediaTypeText
	default:
		return contentType
	}
}
