package web

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/attendance-scanner/internal/web/handlers"
	"github.com/kozaktomas/attendance-scanner/internal/web/middleware"
	"github.com/kozaktomas/attendance-scanner/internal/web/static"
)

func (s *Server) setupRoutes() {
	svc := s.services

	// Create handlers
	sessionHandler := handlers.NewSessionHandler(svc.Tracker, svc.Roster)
	recordsHandler := handlers.NewRecordsHandler(svc.Tracker, svc.Records, svc.Roster)
	classesHandler := handlers.NewClassesHandler(svc.Roster)
	studentsHandler := handlers.NewStudentsHandler(svc.Identities, svc.Roster)
	streamHandler := handlers.NewStreamHandler(svc.Live, svc.Preview)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Long-lived streams stay outside the request timeout.
	s.router.Get("/video_feed", streamHandler.Live)
	s.router.Get("/preview_feed", streamHandler.Preview)
	s.router.Get("/api/v1/records/events", recordsHandler.Events)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(time.Minute))

		// Session
		r.Get("/session", sessionHandler.Get)
		r.Post("/session", sessionHandler.Activate)
		r.Delete("/session", sessionHandler.Delete)
		r.Get("/session/default", sessionHandler.Default)

		// Records
		r.Get("/records", recordsHandler.List)
		r.Get("/records/dates", recordsHandler.Dates)
		r.Get("/records/export", recordsHandler.Export)
		r.Get("/records/last-update", recordsHandler.LastUpdate)

		// Classes
		r.Get("/classes", classesHandler.List)
		r.Post("/classes", classesHandler.Create)
		r.Get("/classes/{classId}", classesHandler.Get)
		r.Delete("/classes/{classId}", classesHandler.Delete)
		r.Post("/classes/{classId}/subjects", classesHandler.AddSubject)
		r.Put("/classes/{classId}/subjects/{index}", classesHandler.UpdateSubject)
		r.Delete("/classes/{classId}/subjects/{index}", classesHandler.RemoveSubject)
		r.Post("/classes/{classId}/students", classesHandler.AddStudent)
		r.Delete("/classes/{classId}/students/{name}", classesHandler.RemoveStudent)

		// Students
		r.Get("/students", studentsHandler.List)
		r.Post("/students", studentsHandler.Enroll)
		r.Delete("/students/{name}", studentsHandler.Delete)
	})

	// Serve static files for the dashboard
	s.router.With(middleware.SecurityHeaders()).Get("/*", s.serveSPA)
}

// serveSPA serves the dashboard
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	if static.HasDist() {
		fs := static.GetFileSystem()
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}

		f, err := fs.Open(path)
		if err == nil {
			defer f.Close()

			stat, err := f.Stat()
			if err == nil && !stat.IsDir() {
				contentType := "application/octet-stream"
				switch {
				case strings.HasSuffix(path, ".html"):
					contentType = "text/html; charset=utf-8"
				case strings.HasSuffix(path, ".css"):
					contentType = "text/css; charset=utf-8"
				case strings.HasSuffix(path, ".js"):
					contentType = "application/javascript; charset=utf-8"
				case strings.HasSuffix(path, ".svg"):
					contentType = "image/svg+xml"
				case strings.HasSuffix(path, ".png"):
					contentType = "image/png"
				case strings.HasSuffix(path, ".ico"):
					contentType = "image/x-icon"
				}

				w.Header().Set("Content-Type", contentType)
				w.WriteHeader(http.StatusOK)
				io.Copy(w, f)
				return
			}
		}

		// Unknown paths fall back to the dashboard.
		indexFile, err := fs.Open("/index.html")
		if err == nil {
			defer indexFile.Close()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			io.Copy(w, indexFile)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Attendance Scanner</title></head>
<body>
    <h1>Attendance Scanner</h1>
    <p>Dashboard assets are missing. API is available at <a href="/api/v1/health">/api/v1/health</a></p>
</body>
</html>`))
}
