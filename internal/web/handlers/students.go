package handlers

import (
	"fmt"
	"image"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
	"github.com/kozaktomas/attendance-scanner/internal/identity"
	"github.com/kozaktomas/attendance-scanner/internal/roster"
)

// StudentsHandler lists, enrolls and deletes students.
type StudentsHandler struct {
	identities *identity.Service
	roster     *roster.Service
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(identities *identity.Service, roster *roster.Service) *StudentsHandler {
	return &StudentsHandler{identities: identities, roster: roster}
}

// EnrollResponse is returned after a successful enrollment
type EnrollResponse struct {
	*identity.EnrollResult
	ClassID string `json:"class_id,omitempty"`
}

// List returns enrolled names, optionally filtered by ?q.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.identities.Names(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		log.Printf("Listing students failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}
	if names == nil {
		names = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"students": names})
}

// Enroll accepts a multipart form with "name", optional "class_id" and one or
// more "files" images, and stores the averaged face embedding.
func (h *StudentsHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	classID := strings.TrimSpace(r.FormValue("class_id"))
	if classID != "" {
		if _, err := h.roster.Get(r.Context(), classID); err != nil {
			respondDomainError(w, err, "failed to load class")
			return
		}
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	if len(files) > constants.MaxEnrollImages {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images allowed", constants.MaxEnrollImages))
		return
	}

	images := make([]image.Image, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read "+fh.Filename)
			return
		}
		img, err := identity.DecodeImage(f)
		f.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, "unsupported image "+fh.Filename)
			return
		}
		images = append(images, img)
	}

	result, err := h.identities.Enroll(r.Context(), name, images, nil)
	if err != nil {
		log.Printf("Enrolling %s failed: %v", facematch.SanitizeForLog(name), err)
		respondDomainError(w, err, "failed to enroll student")
		return
	}
	log.Printf("Enrolled %s from %d/%d images", facematch.SanitizeForLog(name), result.FacesUsed, result.Images)

	if classID != "" {
		if err := h.roster.AddStudent(r.Context(), classID, name); err != nil {
			respondDomainError(w, err, "failed to add student to class")
			return
		}
	}
	respondJSON(w, http.StatusCreated, EnrollResponse{EnrollResult: result, ClassID: classID})
}

// Delete removes {name} from every class, its records and its embedding.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if strings.TrimSpace(name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.identities.Delete(r.Context(), name); err != nil {
		log.Printf("Deleting %s failed: %v", facematch.SanitizeForLog(name), err)
		respondError(w, http.StatusInternalServerError, "failed to delete student")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
