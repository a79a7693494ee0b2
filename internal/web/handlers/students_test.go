package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/attendance-scanner/internal/database"
)

// enrollRequest builds a multipart enrollment request with count PNG images.
func enrollRequest(t *testing.T, fields map[string]string, count int) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < count; i++ {
		part, err := mw.CreateFormFile("files", "face.png")
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(part, image.NewGray(image.Rect(0, 0, 64, 64))); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", "/api/v1/students", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestStudentsHandler_Enroll(t *testing.T) {
	env := activeEnv(t)
	handler := NewStudentsHandler(env.identities, env.roster)

	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, enrollRequest(t, map[string]string{"name": "Carol", "class_id": "10A"}, 2))

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var resp EnrollResponse
	decodeBody(t, recorder, &resp)
	if resp.Name != "Carol" || resp.Images != 2 || resp.FacesUsed != 2 || resp.ClassID != "10A" {
		t.Errorf("unexpected response %+v", resp)
	}

	ids, _ := env.store.GetAllEmbeddings(context.Background())
	if len(ids) != 1 || ids[0].Name != "Carol" {
		t.Errorf("expected Carol to be stored, got %+v", ids)
	}
	class, _ := env.store.GetClass(context.Background(), "10A")
	if len(class.Students) != 3 {
		t.Errorf("expected Carol on the roster, got %v", class.Students)
	}
	if rec, _ := env.store.FindOne(context.Background(), database.RecordFilter{Name: "Carol"}); rec == nil {
		t.Error("expected an Absent record for Carol in the active session")
	}
}

func TestStudentsHandler_EnrollErrors(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]string
		files      int
		detectErr  bool
		noFaces    bool
		wantStatus int
	}{
		{"missing name", map[string]string{}, 1, false, false, http.StatusBadRequest},
		{"no files", map[string]string{"name": "Carol"}, 0, false, false, http.StatusBadRequest},
		{"too many files", map[string]string{"name": "Carol"}, 21, false, false, http.StatusBadRequest},
		{"unknown class", map[string]string{"name": "Carol", "class_id": "9Z"}, 1, false, false, http.StatusNotFound},
		{"no face", map[string]string{"name": "Carol"}, 1, false, true, http.StatusBadRequest},
		{"detector down", map[string]string{"name": "Carol"}, 1, true, false, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tc.detectErr {
				env.detector.err = errors.New("connection refused")
			}
			if tc.noFaces {
				env.detector.dets = nil
			}
			handler := NewStudentsHandler(env.identities, env.roster)

			recorder := httptest.NewRecorder()
			handler.Enroll(recorder, enrollRequest(t, tc.fields, tc.files))

			if recorder.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tc.wantStatus, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestStudentsHandler_EnrollRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	handler := NewStudentsHandler(env.identities, env.roster)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("name", "Carol")
	part, _ := mw.CreateFormFile("files", "notes.txt")
	_, _ = part.Write([]byte("hello"))
	_ = mw.Close()
	req := httptest.NewRequest("POST", "/api/v1/students", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	recorder := httptest.NewRecorder()
	handler.Enroll(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", recorder.Code)
	}
}

func TestStudentsHandler_List(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddIdentity("Zoë Dvořák", []float32{1, 0})
	env.store.AddIdentity("Adam Novak", []float32{0, 1})
	handler := NewStudentsHandler(env.identities, env.roster)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Adam Novak", "Zoë Dvořák"}},
		{"?q=dvorak", []string{"Zoë Dvořák"}},
		{"?q=nobody", []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.List(recorder, httptest.NewRequest("GET", "/api/v1/students"+tc.query, nil))

			var resp struct {
				Students []string `json:"students"`
			}
			decodeBody(t, recorder, &resp)
			if len(resp.Students) != len(tc.want) {
				t.Fatalf("got %v, want %v", resp.Students, tc.want)
			}
			for i := range tc.want {
				if resp.Students[i] != tc.want[i] {
					t.Errorf("got %v, want %v", resp.Students, tc.want)
				}
			}
		})
	}
}

func TestStudentsHandler_Delete(t *testing.T) {
	env := activeEnv(t)
	env.store.AddIdentity("Alice", []float32{1, 0})
	handler := NewStudentsHandler(env.identities, env.roster)

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/students/Alice", nil), map[string]string{"name": "Alice"})
	handler.Delete(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", recorder.Code)
	}
	ctx := context.Background()
	if rec, _ := env.store.FindOne(ctx, database.RecordFilter{Name: "Alice"}); rec != nil {
		t.Error("Alice's records should be removed")
	}
	class, _ := env.store.GetClass(ctx, "10A")
	for _, s := range class.Students {
		if s == "Alice" {
			t.Error("Alice should be removed from the roster")
		}
	}

	env.store.DeleteGlobalError = errors.New("db down")
	recorder = httptest.NewRecorder()
	req = requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/students/Bob", nil), map[string]string{"name": "Bob"})
	handler.Delete(recorder, req)
	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", recorder.Code)
	}
}
