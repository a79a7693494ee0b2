package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/attendance-scanner/internal/attendance"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
	"github.com/kozaktomas/attendance-scanner/internal/roster"
)

// SessionHandler selects the active (class, subject) scope.
type SessionHandler struct {
	tracker *attendance.Tracker
	roster  *roster.Service
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(tracker *attendance.Tracker, roster *roster.Service) *SessionHandler {
	return &SessionHandler{tracker: tracker, roster: roster}
}

// SessionResponse represents the active session in API responses
type SessionResponse struct {
	Active  bool                `json:"active"`
	Session *attendance.Session `json:"session,omitempty"`
}

// ActivateRequest represents a session activation request
type ActivateRequest struct {
	ClassID      string `json:"class_id" validate:"required,max=64"`
	SubjectIndex int    `json:"subject_index" validate:"min=0"`
}

// currentSession describes the tracker's active session.
func currentSession(tracker *attendance.Tracker) SessionResponse {
	sess, ok := tracker.Current()
	if !ok {
		return SessionResponse{}
	}
	return SessionResponse{Active: true, Session: &sess}
}

// Get returns the active session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, currentSession(h.tracker))
}

// Activate makes the requested subject the active session and creates
// Absent records for its roster.
func (h *SessionHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subject, err := h.roster.Resolve(r.Context(), req.ClassID, req.SubjectIndex)
	if err != nil {
		respondDomainError(w, err, "failed to load class")
		return
	}
	if err := h.tracker.Activate(r.Context(), req.ClassID, req.SubjectIndex, subject); err != nil {
		log.Printf("Activating session %s failed: %v", facematch.SanitizeForLog(req.ClassID), err)
		respondError(w, http.StatusInternalServerError, "failed to create attendance records")
		return
	}
	respondJSON(w, http.StatusOK, currentSession(h.tracker))
}

// Default activates the first subject of the first class when nothing is
// active yet, and returns the active session either way.
func (h *SessionHandler) Default(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.tracker.Current(); ok {
		respondJSON(w, http.StatusOK, currentSession(h.tracker))
		return
	}

	classID, index, subject, err := h.roster.Default(r.Context())
	if errors.Is(err, database.ErrSubjectNotFound) {
		respondJSON(w, http.StatusOK, SessionResponse{})
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list classes")
		return
	}
	if err := h.tracker.Activate(r.Context(), classID, index, subject); err != nil {
		log.Printf("Activating default session failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create attendance records")
		return
	}
	respondJSON(w, http.StatusOK, currentSession(h.tracker))
}

// Delete clears the active session. Records are kept.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.tracker.Deactivate()
	w.WriteHeader(http.StatusNoContent)
}
