// Package roster manages classes, their ordered subjects and rosters, and
// keeps the active attendance session consistent with those edits.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kozaktomas/attendance-scanner/internal/attendance"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
)

// Validation errors returned before any store call.
var (
	ErrEmptyClassID     = errors.New("class ID is required")
	ErrEmptySubjectName = errors.New("subject name is required")
	ErrEmptyStudentName = errors.New("student name is required")
)

// Service wraps a ClassWriter. Every mutation that can affect the active
// session is reported to the tracker.
type Service struct {
	store   database.ClassWriter
	tracker *attendance.Tracker
}

// NewService creates a roster service. tracker may be nil for CLI use.
func NewService(store database.ClassWriter, tracker *attendance.Tracker) *Service {
	return &Service{store: store, tracker: tracker}
}

// NormalizeSubject trims fields and rewrites 24h times as "03:04 PM".
// Times that do not parse are kept as given.
func NormalizeSubject(s database.Subject) database.Subject {
	return database.Subject{
		Teacher:   strings.TrimSpace(s.Teacher),
		Name:      strings.TrimSpace(s.Name),
		StartTime: attendance.NormalizeClockInput(s.StartTime),
		LateTime:  attendance.NormalizeClockInput(s.LateTime),
	}
}

// List returns all classes.
func (s *Service) List(ctx context.Context) ([]database.ClassGroup, error) {
	classes, err := s.store.ListClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// Get returns a class or ErrClassNotFound.
func (s *Service) Get(ctx context.Context, classID string) (*database.ClassGroup, error) {
	class, err := s.store.GetClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	if class == nil {
		return nil, database.ErrClassNotFound
	}
	return class, nil
}

// Create creates an empty class. Returns false when it already existed.
func (s *Service) Create(ctx context.Context, classID string) (bool, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return false, ErrEmptyClassID
	}
	created, err := s.store.CreateClass(ctx, classID)
	if err != nil {
		return false, fmt.Errorf("create class: %w", err)
	}
	if created {
		log.Printf("Created class %s", facematch.SanitizeForLog(classID))
	}
	return created, nil
}

// Delete removes a class together with its attendance records.
func (s *Service) Delete(ctx context.Context, classID string) error {
	if err := s.store.DeleteClass(ctx, classID); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	log.Printf("Deleted class %s", facematch.SanitizeForLog(classID))
	if s.tracker != nil {
		s.tracker.ClassRemoved(classID)
		s.tracker.Touch()
	}
	return nil
}

// AddSubject appends a subject to the class.
func (s *Service) AddSubject(ctx context.Context, classID string, subject database.Subject) (database.Subject, error) {
	subject = NormalizeSubject(subject)
	if subject.Name == "" {
		return subject, ErrEmptySubjectName
	}
	if err := s.store.AddSubject(ctx, classID, subject); err != nil {
		return subject, fmt.Errorf("add subject: %w", err)
	}
	return subject, nil
}

// UpdateSubject replaces the subject at index.
func (s *Service) UpdateSubject(ctx context.Context, classID string, index int, subject database.Subject) (database.Subject, error) {
	subject = NormalizeSubject(subject)
	if subject.Name == "" {
		return subject, ErrEmptySubjectName
	}
	if err := s.store.UpdateSubject(ctx, classID, index, subject); err != nil {
		return subject, fmt.Errorf("update subject: %w", err)
	}
	if s.tracker != nil {
		if err := s.tracker.SubjectUpdated(ctx, classID, index, subject); err != nil {
			return subject, fmt.Errorf("refresh session: %w", err)
		}
	}
	return subject, nil
}

// RemoveSubject deletes the subject at index. Later subjects move up by one.
func (s *Service) RemoveSubject(ctx context.Context, classID string, index int) error {
	if err := s.store.RemoveSubject(ctx, classID, index); err != nil {
		return fmt.Errorf("remove subject: %w", err)
	}
	if s.tracker != nil {
		s.tracker.SubjectRemoved(classID, index)
	}
	return nil
}

// AddStudent adds name to the class roster. Adding an existing member is a no-op.
func (s *Service) AddStudent(ctx context.Context, classID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyStudentName
	}
	if err := s.store.AddStudent(ctx, classID, name); err != nil {
		return fmt.Errorf("add student: %w", err)
	}
	if s.tracker != nil {
		if err := s.tracker.StudentAdded(ctx, classID); err != nil {
			return fmt.Errorf("refresh session: %w", err)
		}
	}
	return nil
}

// RemoveStudent removes name from the class and drops their records for it.
func (s *Service) RemoveStudent(ctx context.Context, classID, name string) error {
	if err := s.store.RemoveStudent(ctx, classID, name); err != nil {
		return fmt.Errorf("remove student: %w", err)
	}
	log.Printf("Removed %s from class %s", facematch.SanitizeForLog(name), facematch.SanitizeForLog(classID))
	if s.tracker != nil {
		s.tracker.Touch()
	}
	return nil
}

// Resolve returns the subject at index of classID.
func (s *Service) Resolve(ctx context.Context, classID string, index int) (database.Subject, error) {
	class, err := s.Get(ctx, classID)
	if err != nil {
		return database.Subject{}, err
	}
	return class.SubjectAt(index)
}

// Default returns the first subject of the first class that has one.
func (s *Service) Default(ctx context.Context) (string, int, database.Subject, error) {
	classes, err := s.List(ctx)
	if err != nil {
		return "", 0, database.Subject{}, err
	}
	for _, c := range classes {
		if len(c.Subjects) > 0 {
			return c.ClassID, 0, c.Subjects[0], nil
		}
	}
	return "", 0, database.Subject{}, database.ErrSubjectNotFound
}
