package database

import (
	"context"
	"time"
)

// RecordReader provides read-only access to attendance records
type RecordReader interface {
	// Find returns all records matching the filter
	Find(ctx context.Context, filter RecordFilter) ([]AttendanceRecord, error)
	// FindOne returns the first record matching the filter, nil if none
	FindOne(ctx context.Context, filter RecordFilter) (*AttendanceRecord, error)
	// DistinctDates returns every date that has at least one record, newest first
	DistinctDates(ctx context.Context) ([]string, error)
}

// RecordWriter provides write access to attendance records.
// Implementations must make InsertMany and MarkIfAbsent safe under concurrent use:
// two callers racing on the same natural key must not both succeed.
type RecordWriter interface {
	RecordReader

	// InsertMany inserts records whose natural key does not exist yet.
	// Returns the number of rows actually inserted.
	InsertMany(ctx context.Context, records []AttendanceRecord) (int, error)

	// MarkIfAbsent atomically moves the record identified by key from Absent to status.
	// Returns false when no record was Absent (already marked, missing).
	MarkIfAbsent(ctx context.Context, key RecordKey, status Status, timeOfDay string, at time.Time) (bool, error)

	// DeleteMany removes all records matching the filter and returns how many were removed
	DeleteMany(ctx context.Context, filter RecordFilter) (int64, error)
}

// RosterReader looks up class membership
type RosterReader interface {
	// GetStudentsInClass returns the names enrolled in a class, empty if the class is unknown
	GetStudentsInClass(ctx context.Context, classID string) ([]string, error)
}

// ClassReader provides read-only access to classes
type ClassReader interface {
	RosterReader

	// ListClasses returns all classes ordered by creation
	ListClasses(ctx context.Context) ([]ClassGroup, error)
	// GetClass returns a class by ID, nil if not found
	GetClass(ctx context.Context, classID string) (*ClassGroup, error)
}

// ClassWriter provides write access to classes, subjects and rosters
type ClassWriter interface {
	ClassReader

	// CreateClass creates an empty class. Returns false if it already existed.
	CreateClass(ctx context.Context, classID string) (bool, error)
	// DeleteClass removes the class and every attendance record of that class
	DeleteClass(ctx context.Context, classID string) error

	// AddSubject appends a subject to the class
	AddSubject(ctx context.Context, classID string, subject Subject) error
	// UpdateSubject replaces the subject at index
	UpdateSubject(ctx context.Context, classID string, index int, subject Subject) error
	// RemoveSubject deletes the subject at index; later subjects move up by one
	RemoveSubject(ctx context.Context, classID string, index int) error

	// AddStudent adds a student to the roster (no-op if already present)
	AddStudent(ctx context.Context, classID, name string) error
	// RemoveStudent removes a student from the roster and deletes
	// their attendance records for this class only
	RemoveStudent(ctx context.Context, classID, name string) error
}

// IdentityReader provides read-only access to enrolled face embeddings
type IdentityReader interface {
	// GetAllEmbeddings returns every identity ordered by name
	GetAllEmbeddings(ctx context.Context) ([]Identity, error)
	// ListNames returns every enrolled name ordered by name
	ListNames(ctx context.Context) ([]string, error)
}

// IdentityWriter provides write access to enrolled identities
type IdentityWriter interface {
	IdentityReader

	// SaveIdentity inserts or overwrites the identity's embedding
	SaveIdentity(ctx context.Context, identity Identity) error

	// DeleteStudentGlobally removes the identity, its membership in every roster
	// and every attendance record bearing its name in one transaction
	DeleteStudentGlobally(ctx context.Context, name string) error
}
