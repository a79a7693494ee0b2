package roster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/attendance"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/database/mock"
)

func newTestService(t *testing.T) (*Service, *mock.MockStore, *attendance.Tracker) {
	t.Helper()
	store := mock.NewMockStore()
	clock := func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local) }
	tracker := attendance.NewTracker(store, store, attendance.WithClock(clock))
	return NewService(store, tracker), store, tracker
}

func TestNormalizeSubject(t *testing.T) {
	got := NormalizeSubject(database.Subject{Teacher: " Mr. X ", Name: " Math", StartTime: "09:00", LateTime: "13:15"})
	want := database.Subject{Teacher: "Mr. X", Name: "Math", StartTime: "09:00 AM", LateTime: "01:15 PM"}
	if got != want {
		t.Errorf("NormalizeSubject() = %+v, want %+v", got, want)
	}

	kept := NormalizeSubject(database.Subject{Name: "Art", LateTime: "after lunch"})
	if kept.LateTime != "after lunch" {
		t.Errorf("unparseable time changed to %q", kept.LateTime)
	}
}

func TestService_Create(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "  "); !errors.Is(err, ErrEmptyClassID) {
		t.Errorf("Create(blank) error = %v", err)
	}
	created, err := svc.Create(ctx, "10A")
	if err != nil || !created {
		t.Fatalf("Create() = (%v, %v)", created, err)
	}
	created, err = svc.Create(ctx, "10A")
	if err != nil || created {
		t.Errorf("second Create() = (%v, %v), want (false, nil)", created, err)
	}
}

func TestService_Subjects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "10A"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AddSubject(ctx, "10A", database.Subject{Teacher: "X"}); !errors.Is(err, ErrEmptySubjectName) {
		t.Errorf("AddSubject(no name) error = %v", err)
	}
	if _, err := svc.AddSubject(ctx, "missing", database.Subject{Name: "Math"}); !errors.Is(err, database.ErrClassNotFound) {
		t.Errorf("AddSubject(missing class) error = %v", err)
	}

	added, err := svc.AddSubject(ctx, "10A", database.Subject{Name: "Math", LateTime: "09:30"})
	if err != nil {
		t.Fatal(err)
	}
	if added.LateTime != "09:30 AM" {
		t.Errorf("LateTime = %q", added.LateTime)
	}

	if _, err := svc.UpdateSubject(ctx, "10A", 3, database.Subject{Name: "Bio"}); !errors.Is(err, database.ErrSubjectNotFound) {
		t.Errorf("UpdateSubject(bad index) error = %v", err)
	}
	if _, err := svc.UpdateSubject(ctx, "10A", 0, database.Subject{Name: "Algebra"}); err != nil {
		t.Fatal(err)
	}
	subject, err := svc.Resolve(ctx, "10A", 0)
	if err != nil || subject.Name != "Algebra" {
		t.Errorf("Resolve() = (%+v, %v)", subject, err)
	}
}

func TestService_RemoveSubject_KeepsSession(t *testing.T) {
	svc, _, tracker := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "10A"); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Math", "Physics", "Art"} {
		if _, err := svc.AddSubject(ctx, "10A", database.Subject{Name: name}); err != nil {
			t.Fatal(err)
		}
	}
	art, _ := svc.Resolve(ctx, "10A", 2)
	if err := tracker.Activate(ctx, "10A", 2, art); err != nil {
		t.Fatal(err)
	}

	if err := svc.RemoveSubject(ctx, "10A", 0); err != nil {
		t.Fatal(err)
	}
	sess, ok := tracker.Current()
	if !ok || sess.SubjectIndex != 1 {
		t.Fatalf("session = (%+v, %v), want index 1", sess, ok)
	}
	current, _ := svc.Resolve(ctx, "10A", sess.SubjectIndex)
	if current.Name != "Art" {
		t.Errorf("session points at %q, want Art", current.Name)
	}

	if err := svc.RemoveSubject(ctx, "10A", 1); err != nil {
		t.Fatal(err)
	}
	if _, ok := tracker.Current(); ok {
		t.Error("removing the active subject should clear the session")
	}
}

func TestService_UpdateSubject_RefreshesSession(t *testing.T) {
	svc, _, tracker := newTestService(t)
	ctx := context.Background()
	svc.Create(ctx, "10A")
	svc.AddSubject(ctx, "10A", database.Subject{Name: "Math", LateTime: "11:00 AM"})
	math, _ := svc.Resolve(ctx, "10A", 0)
	if err := tracker.Activate(ctx, "10A", 0, math); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateSubject(ctx, "10A", 0, database.Subject{Name: "Math", LateTime: "08:00"}); err != nil {
		t.Fatal(err)
	}
	sess, _ := tracker.Current()
	if sess.Subject.LateTime != "08:00 AM" {
		t.Errorf("session LateTime = %q, want 08:00 AM", sess.Subject.LateTime)
	}
}

func TestService_Students(t *testing.T) {
	svc, store, tracker := newTestService(t)
	ctx := context.Background()
	svc.Create(ctx, "10A")
	svc.AddSubject(ctx, "10A", database.Subject{Name: "Math"})
	math, _ := svc.Resolve(ctx, "10A", 0)
	if err := tracker.Activate(ctx, "10A", 0, math); err != nil {
		t.Fatal(err)
	}

	if err := svc.AddStudent(ctx, "10A", " "); !errors.Is(err, ErrEmptyStudentName) {
		t.Errorf("AddStudent(blank) error = %v", err)
	}
	if err := svc.AddStudent(ctx, "10A", "Alice"); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddStudent(ctx, "10A", "Alice"); err != nil {
		t.Fatal(err)
	}

	class, _ := svc.Get(ctx, "10A")
	if len(class.Students) != 1 {
		t.Errorf("students = %v, want one Alice", class.Students)
	}
	if len(store.Records()) != 1 {
		t.Fatalf("records = %d, want an Absent record for the new student", len(store.Records()))
	}

	if err := svc.RemoveStudent(ctx, "10A", "Alice"); err != nil {
		t.Fatal(err)
	}
	if len(store.Records()) != 0 {
		t.Error("removing a student should drop their records for the class")
	}
}

func TestService_Delete(t *testing.T) {
	svc, store, tracker := newTestService(t)
	ctx := context.Background()
	svc.Create(ctx, "10A")
	svc.AddSubject(ctx, "10A", database.Subject{Name: "Math"})
	svc.AddStudent(ctx, "10A", "Alice")
	store.AddRecord(database.AttendanceRecord{Name: "Alice", ClassID: "10B", Subject: "Math", Date: "2024-03-01"})
	math, _ := svc.Resolve(ctx, "10A", 0)
	tracker.Activate(ctx, "10A", 0, math)

	if err := svc.Delete(ctx, "10A"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, "10A"); !errors.Is(err, database.ErrClassNotFound) {
		t.Errorf("Get(deleted) error = %v", err)
	}
	if _, ok := tracker.Current(); ok {
		t.Error("session should be cleared")
	}
	records := store.Records()
	if len(records) != 1 || records[0].ClassID != "10B" {
		t.Errorf("records = %+v, want only the other class", records)
	}
}

func TestService_Default(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, _, err := svc.Default(ctx); !errors.Is(err, database.ErrSubjectNotFound) {
		t.Errorf("Default(empty) error = %v", err)
	}

	svc.Create(ctx, "09C")
	svc.Create(ctx, "10A")
	svc.AddSubject(ctx, "10A", database.Subject{Name: "Math"})
	svc.AddSubject(ctx, "10A", database.Subject{Name: "Art"})

	classID, index, subject, err := svc.Default(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if classID != "10A" || index != 0 || subject.Name != "Math" {
		t.Errorf("Default() = (%s, %d, %s)", classID, index, subject.Name)
	}
}

func TestService_Import(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	svc.Create(ctx, "10A")
	svc.AddSubject(ctx, "10A", database.Subject{Name: "Math"})

	doc := `
classes:
  - class_id: 10A
    students: [Alice, Bob]
    subjects:
      - teacher: Mr. X
        subject: Math
      - teacher: Ms. Y
        subject: Physics
        start_time: "13:00"
        late_time: "13:15"
  - class_id: 10B
    students: [Carol]
`
	path := filepath.Join(t.TempDir(), "classes.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	result, err := svc.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	want := ImportResult{ClassesCreated: 1, SubjectsAdded: 1, SubjectsSkipped: 1, StudentsAdded: 3}
	if *result != want {
		t.Errorf("result = %+v, want %+v", *result, want)
	}

	physics, err := svc.Resolve(ctx, "10A", 1)
	if err != nil || physics.LateTime != "01:15 PM" {
		t.Errorf("Physics = (%+v, %v)", physics, err)
	}

	again, err := svc.ImportFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if again.ClassesCreated != 0 || again.SubjectsAdded != 0 || again.StudentsAdded != 0 {
		t.Errorf("re-import should change nothing, got %+v", *again)
	}
}

func TestParseSeed_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"invalid yaml", "classes: [unclosed"},
		{"missing class id", "classes:\n  - students: [Alice]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSeed([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
