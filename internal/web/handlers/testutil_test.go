package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/attendance-scanner/internal/attendance"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/database/mock"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
	"github.com/kozaktomas/attendance-scanner/internal/identity"
	"github.com/kozaktomas/attendance-scanner/internal/roster"
)

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.Local)

var testMath = database.Subject{Teacher: "Novak", Name: "Math", StartTime: "09:00 AM", LateTime: "10:00 AM"}

// testEnv bundles the services a handler test needs, all backed by one mock store.
type testEnv struct {
	store      *mock.MockStore
	tracker    *attendance.Tracker
	roster     *roster.Service
	identities *identity.Service
	detector   *stubDetector
}

// stubDetector returns one fixed face for every image.
type stubDetector struct {
	dets []facematch.Detection
	err  error
}

func (d *stubDetector) Detect(ctx context.Context, img image.Image) ([]facematch.Detection, error) {
	return d.dets, d.err
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mock.NewMockStore()
	store.AddClass(database.ClassGroup{
		ClassID:  "10A",
		Students: []string{"Alice", "Bob"},
		Subjects: []database.Subject{testMath, {Teacher: "Svoboda", Name: "Physics"}},
	})
	tracker := attendance.NewTracker(store, store, attendance.WithClock(func() time.Time { return testNow }))
	det := &stubDetector{dets: []facematch.Detection{{
		Box:       image.Rect(0, 0, 50, 50),
		Embedding: []float32{0.1, 0.2, 0.3},
	}}}
	cache := identity.NewCache(store, "euclidean", false)
	return &testEnv{
		store:      store,
		tracker:    tracker,
		roster:     roster.NewService(store, tracker),
		identities: identity.NewService(store, det, cache),
		detector:   det,
	}
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest builds a request with body encoded as JSON.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody unmarshals the recorder body into v.
func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", recorder.Body.String(), err)
	}
}
