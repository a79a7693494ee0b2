package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/identity"
	"github.com/kozaktomas/attendance-scanner/internal/roster"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, database.ErrClassNotFound), errors.Is(err, database.ErrSubjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, roster.ErrEmptyClassID),
		errors.Is(err, roster.ErrEmptySubjectName),
		errors.Is(err, roster.ErrEmptyStudentName),
		errors.Is(err, identity.ErrNoFaces):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError writes err with the status statusForError picks.
// Internal errors are not echoed to the client.
func respondDomainError(w http.ResponseWriter, err error, fallback string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, fallback)
		return
	}
	respondError(w, status, err.Error())
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
