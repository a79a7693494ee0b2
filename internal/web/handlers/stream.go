package handlers

import (
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/scanner"
)

const streamBoundary = "frame"

// StreamHandler serves the camera feeds as multipart/x-mixed-replace MJPEG.
type StreamHandler struct {
	live    *scanner.Hub
	preview *scanner.Hub
}

// NewStreamHandler creates a stream handler. Nil hubs report 503.
func NewStreamHandler(live, preview *scanner.Hub) *StreamHandler {
	return &StreamHandler{live: live, preview: preview}
}

// Live streams annotated frames.
func (h *StreamHandler) Live(w http.ResponseWriter, r *http.Request) {
	serveMJPEG(w, r, h.live)
}

// Preview streams raw frames at reduced size.
func (h *StreamHandler) Preview(w http.ResponseWriter, r *http.Request) {
	serveMJPEG(w, r, h.preview)
}

func serveMJPEG(w http.ResponseWriter, r *http.Request, hub *scanner.Hub) {
	if hub == nil {
		respondError(w, http.StatusServiceUnavailable, "camera is not running")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	frames := hub.Subscribe()
	defer hub.Unsubscribe(frames)

	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(streamBoundary); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to start stream")
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":   {"image/jpeg"},
				"Content-Length": {strconv.Itoa(len(frame))},
			})
			if err != nil {
				return
			}
			if _, err := part.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
