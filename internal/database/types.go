package database

import (
	"errors"
	"time"
)

// Sentinel errors returned by class stores.
var (
	ErrClassNotFound   = errors.New("class not found")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrEmptyFilter     = errors.New("refusing to delete records without a filter")
)

// Status is the attendance state of a single record.
type Status string

// Status constants. A record only ever moves from StatusAbsent to one of the others.
const (
	StatusAbsent  Status = "Absent"
	StatusPresent Status = "Present"
	StatusLate    Status = "Late"
)

// IsMarked reports whether the status counts as attended.
func (s Status) IsMarked() bool {
	return s == StatusPresent || s == StatusLate
}

// Identity is an enrolled person and their face embedding.
type Identity struct {
	Name      string
	Embedding []float32
	UpdatedAt time.Time
}

// Subject is one scheduled lesson of a class.
type Subject struct {
	Teacher   string `json:"teacher" yaml:"teacher"`
	Name      string `json:"subject" yaml:"subject"`
	StartTime string `json:"start_time" yaml:"start_time"`
	LateTime  string `json:"late_time" yaml:"late_time"`
}

// ClassGroup is a class with its roster and ordered subjects.
// Subjects are addressed by position.
type ClassGroup struct {
	ClassID  string    `json:"class_id" yaml:"class_id"`
	Students []string  `json:"students" yaml:"students"`
	Subjects []Subject `json:"subjects" yaml:"subjects"`
}

// SubjectAt returns the subject at index, or ErrSubjectNotFound.
func (c *ClassGroup) SubjectAt(index int) (Subject, error) {
	if index < 0 || index >= len(c.Subjects) {
		return Subject{}, ErrSubjectNotFound
	}
	return c.Subjects[index], nil
}

// RecordKey is the natural key of an attendance record.
type RecordKey struct {
	Name    string
	ClassID string
	Subject string
	Date    string // YYYY-MM-DD
}

// AttendanceRecord is one student's attendance for one class subject on one date.
type AttendanceRecord struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	ClassID  string    `json:"class"`
	Teacher  string    `json:"teacher"`
	Subject  string    `json:"subject"`
	Date     string    `json:"date"`
	Time     string    `json:"time"` // "03:04 PM" or "-" while absent
	Status   Status    `json:"status"`
	MarkedAt time.Time `json:"marked_at,omitzero"`
}

// Key returns the record's natural key.
func (r *AttendanceRecord) Key() RecordKey {
	return RecordKey{Name: r.Name, ClassID: r.ClassID, Subject: r.Subject, Date: r.Date}
}

// RecordFilter selects attendance records. Empty fields match everything.
type RecordFilter struct {
	Name    string
	ClassID string
	Subject string
	Date    string
	Status  Status
}

// IsEmpty reports whether no field is set.
func (f RecordFilter) IsEmpty() bool {
	return f == RecordFilter{}
}

// Matches reports whether the record satisfies every non-empty filter field.
func (f RecordFilter) Matches(r *AttendanceRecord) bool {
	switch {
	case f.Name != "" && f.Name != r.Name:
		return false
	case f.ClassID != "" && f.ClassID != r.ClassID:
		return false
	case f.Subject != "" && f.Subject != r.Subject:
		return false
	case f.Date != "" && f.Date != r.Date:
		return false
	case f.Status != "" && f.Status != r.Status:
		return false
	}
	return true
}
