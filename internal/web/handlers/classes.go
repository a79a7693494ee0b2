package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/roster"
)

// ClassesHandler manages classes, their subjects and rosters.
type ClassesHandler struct {
	roster *roster.Service
}

// NewClassesHandler creates a new classes handler
func NewClassesHandler(roster *roster.Service) *ClassesHandler {
	return &ClassesHandler{roster: roster}
}

// CreateClassRequest represents a class creation request
type CreateClassRequest struct {
	ClassID string `json:"class_id" validate:"required,max=64"`
}

// SubjectRequest represents a subject create or update request.
// Times are "15:04" or "03:04 PM".
type SubjectRequest struct {
	Teacher   string `json:"teacher" validate:"max=128"`
	Subject   string `json:"subject" validate:"required,max=128"`
	StartTime string `json:"start_time" validate:"max=16"`
	LateTime  string `json:"late_time" validate:"max=16"`
}

func (r SubjectRequest) toSubject() database.Subject {
	return database.Subject{Teacher: r.Teacher, Name: r.Subject, StartTime: r.StartTime, LateTime: r.LateTime}
}

// StudentRequest adds a student to a class roster
type StudentRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

// List returns all classes.
func (h *ClassesHandler) List(w http.ResponseWriter, r *http.Request) {
	classes, err := h.roster.List(r.Context())
	if err != nil {
		log.Printf("Listing classes failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list classes")
		return
	}
	if classes == nil {
		classes = []database.ClassGroup{}
	}
	respondJSON(w, http.StatusOK, classes)
}

// Create creates an empty class.
func (h *ClassesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateClassRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	created, err := h.roster.Create(r.Context(), req.ClassID)
	if err != nil {
		respondDomainError(w, err, "failed to create class")
		return
	}
	if !created {
		respondError(w, http.StatusConflict, "class already exists")
		return
	}
	class, err := h.roster.Get(r.Context(), req.ClassID)
	if err != nil {
		respondDomainError(w, err, "failed to load class")
		return
	}
	respondJSON(w, http.StatusCreated, class)
}

// Get returns one class.
func (h *ClassesHandler) Get(w http.ResponseWriter, r *http.Request) {
	class, err := h.roster.Get(r.Context(), chi.URLParam(r, "classId"))
	if err != nil {
		respondDomainError(w, err, "failed to load class")
		return
	}
	respondJSON(w, http.StatusOK, class)
}

// Delete removes a class and its records.
func (h *ClassesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.roster.Delete(r.Context(), chi.URLParam(r, "classId")); err != nil {
		respondDomainError(w, err, "failed to delete class")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSubject appends a subject to the class.
func (h *ClassesHandler) AddSubject(w http.ResponseWriter, r *http.Request) {
	var req SubjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	subject, err := h.roster.AddSubject(r.Context(), chi.URLParam(r, "classId"), req.toSubject())
	if err != nil {
		respondDomainError(w, err, "failed to add subject")
		return
	}
	respondJSON(w, http.StatusCreated, subject)
}

// UpdateSubject replaces the subject at {index}.
func (h *ClassesHandler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	index, ok := subjectIndexParam(w, r)
	if !ok {
		return
	}
	var req SubjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	subject, err := h.roster.UpdateSubject(r.Context(), chi.URLParam(r, "classId"), index, req.toSubject())
	if err != nil {
		respondDomainError(w, err, "failed to update subject")
		return
	}
	respondJSON(w, http.StatusOK, subject)
}

// RemoveSubject deletes the subject at {index}.
func (h *ClassesHandler) RemoveSubject(w http.ResponseWriter, r *http.Request) {
	index, ok := subjectIndexParam(w, r)
	if !ok {
		return
	}
	if err := h.roster.RemoveSubject(r.Context(), chi.URLParam(r, "classId"), index); err != nil {
		respondDomainError(w, err, "failed to remove subject")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddStudent adds a student to the class roster.
func (h *ClassesHandler) AddStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	classID := chi.URLParam(r, "classId")
	if err := h.roster.AddStudent(r.Context(), classID, req.Name); err != nil {
		respondDomainError(w, err, "failed to add student")
		return
	}
	class, err := h.roster.Get(r.Context(), classID)
	if err != nil {
		respondDomainError(w, err, "failed to load class")
		return
	}
	respondJSON(w, http.StatusOK, class)
}

// RemoveStudent removes {name} from the class and drops their records for it.
func (h *ClassesHandler) RemoveStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.roster.RemoveStudent(r.Context(), chi.URLParam(r, "classId"), chi.URLParam(r, "name")); err != nil {
		respondDomainError(w, err, "failed to remove student")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func subjectIndexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		respondError(w, http.StatusBadRequest, "invalid subject index")
		return 0, false
	}
	return index, true
}
