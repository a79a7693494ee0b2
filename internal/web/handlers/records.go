package handlers

import (
	"bytes"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/attendance"
	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/roster"
)

// RecordsHandler serves the attendance dashboard queries.
type RecordsHandler struct {
	tracker *attendance.Tracker
	records database.RecordReader
	roster  *roster.Service
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(tracker *attendance.Tracker, records database.RecordReader, roster *roster.Service) *RecordsHandler {
	return &RecordsHandler{tracker: tracker, records: records, roster: roster}
}

// RecordsResponse is the dashboard view of one date.
type RecordsResponse struct {
	Date    string                      `json:"date"`
	Session SessionResponse             `json:"session"`
	Records []database.AttendanceRecord `json:"records"`
	Present int                         `json:"present"`
	Late    int                         `json:"late"`
	Absent  int                         `json:"absent"`
}

// List returns records of ?date (today by default) for the active session.
// show_absent=0 hides students not yet marked.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse(constants.DateLayout, date); err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	} else {
		date = h.tracker.Today()
	}

	records, err := h.tracker.RecordsFor(r.Context(), date)
	if err != nil {
		log.Printf("Listing records for %s failed: %v", date, err)
		respondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	resp := RecordsResponse{
		Date:    date,
		Session: currentSession(h.tracker),
		Records: make([]database.AttendanceRecord, 0, len(records)),
	}
	hideAbsent := r.URL.Query().Get("show_absent") == "0"
	for _, rec := range records {
		switch rec.Status {
		case database.StatusPresent:
			resp.Present++
		case database.StatusLate:
			resp.Late++
		default:
			resp.Absent++
			if hideAbsent {
				continue
			}
		}
		resp.Records = append(resp.Records, rec)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Dates lists dates with records, newest first, today included.
func (h *RecordsHandler) Dates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.tracker.Dates(r.Context())
	if err != nil {
		log.Printf("Listing dates failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list dates")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

// Export downloads every record as CSV.
func (h *RecordsHandler) Export(w http.ResponseWriter, r *http.Request) {
	records, err := h.records.Find(r.Context(), database.RecordFilter{})
	if err != nil {
		log.Printf("Export: listing records failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to export records")
		return
	}
	classes, err := h.roster.List(r.Context())
	if err != nil {
		log.Printf("Export: listing classes failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to export records")
		return
	}

	// Buffer so a write error can still produce a JSON error response.
	var buf bytes.Buffer
	if err := attendance.WriteCSV(&buf, records, classes); err != nil {
		log.Printf("Export: writing CSV failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to export records")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+attendance.ExportFilename(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// LastUpdate returns the time records last changed, as unix seconds.
func (h *RecordsHandler) LastUpdate(w http.ResponseWriter, r *http.Request) {
	ts := h.tracker.LastUpdate()
	respondJSON(w, http.StatusOK, map[string]float64{
		"last_update": float64(ts.UnixNano()) / float64(time.Second),
	})
}

// Events streams tracker events over SSE.
func (h *RecordsHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r, h.tracker, currentSession(h.tracker))
}
