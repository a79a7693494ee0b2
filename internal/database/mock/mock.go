// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/attendance-scanner/internal/database"
)

// MockStore is an in-memory implementation of database.RecordWriter,
// database.ClassWriter and database.IdentityWriter sharing one lock, so
// cascading deletes are atomic just like the PostgreSQL transactions.
type MockStore struct {
	mu         sync.RWMutex
	records    []database.AttendanceRecord
	classes    []*database.ClassGroup
	identities map[string]database.Identity

	// Track calls
	InsertManyCalls   [][]database.AttendanceRecord
	MarkIfAbsentCalls []database.RecordKey

	// Error injection
	FindError         error
	FindOneError      error
	InsertManyError   error
	MarkError         error
	DeleteManyError   error
	RosterError       error
	GetClassError     error
	EmbeddingsError   error
	SaveIdentityError error
	DeleteGlobalError error
}

var (
	_ database.RecordWriter   = (*MockStore)(nil)
	_ database.ClassWriter    = (*MockStore)(nil)
	_ database.IdentityWriter = (*MockStore)(nil)
)

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{identities: make(map[string]database.Identity)}
}

// AddRecord adds a record directly, bypassing natural key checks
func (m *MockStore) AddRecord(rec database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.records = append(m.records, rec)
}

// AddClass adds a class with roster and subjects
func (m *MockStore) AddClass(class database.ClassGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := class
	c.Students = slices.Clone(class.Students)
	c.Subjects = slices.Clone(class.Subjects)
	m.classes = append(m.classes, &c)
}

// AddIdentity enrolls an identity directly
func (m *MockStore) AddIdentity(name string, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[name] = database.Identity{Name: name, Embedding: embedding}
}

// Records returns a copy of every stored record
func (m *MockStore) Records() []database.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

// Find returns all records matching the filter
func (m *MockStore) Find(ctx context.Context, filter database.RecordFilter) ([]database.AttendanceRecord, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.AttendanceRecord
	for i := range m.records {
		if filter.Matches(&m.records[i]) {
			results = append(results, m.records[i])
		}
	}
	return results, nil
}

// FindOne returns the first matching record
func (m *MockStore) FindOne(ctx context.Context, filter database.RecordFilter) (*database.AttendanceRecord, error) {
	if m.FindOneError != nil {
		return nil, m.FindOneError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.records {
		if filter.Matches(&m.records[i]) {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// DistinctDates returns record dates, newest first
func (m *MockStore) DistinctDates(ctx context.Context) ([]string, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var dates []string
	for _, r := range m.records {
		if _, ok := seen[r.Date]; !ok {
			seen[r.Date] = struct{}{}
			dates = append(dates, r.Date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// InsertMany inserts records whose natural key is not present yet
func (m *MockStore) InsertMany(ctx context.Context, records []database.AttendanceRecord) (int, error) {
	if m.InsertManyError != nil {
		return 0, m.InsertManyError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertManyCalls = append(m.InsertManyCalls, slices.Clone(records))

	existing := make(map[database.RecordKey]struct{}, len(m.records))
	for i := range m.records {
		existing[m.records[i].Key()] = struct{}{}
	}

	inserted := 0
	for _, rec := range records {
		key := rec.Key()
		if _, ok := existing[key]; ok {
			continue
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		m.records = append(m.records, rec)
		existing[key] = struct{}{}
		inserted++
	}
	return inserted, nil
}

// MarkIfAbsent moves an Absent record to status under the store lock
func (m *MockStore) MarkIfAbsent(ctx context.Context, key database.RecordKey, status database.Status, timeOfDay string, at time.Time) (bool, error) {
	if m.MarkError != nil {
		return false, m.MarkError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkIfAbsentCalls = append(m.MarkIfAbsentCalls, key)

	for i := range m.records {
		rec := &m.records[i]
		if rec.Key() == key && rec.Status == database.StatusAbsent {
			rec.Status = status
			rec.Time = timeOfDay
			rec.MarkedAt = at
			return true, nil
		}
	}
	return false, nil
}

// DeleteMany removes matching records
func (m *MockStore) DeleteMany(ctx context.Context, filter database.RecordFilter) (int64, error) {
	if m.DeleteManyError != nil {
		return 0, m.DeleteManyError
	}
	if filter.IsEmpty() {
		return 0, database.ErrEmptyFilter
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteRecordsLocked(filter), nil
}

func (m *MockStore) deleteRecordsLocked(filter database.RecordFilter) int64 {
	before := len(m.records)
	m.records = slices.DeleteFunc(m.records, func(r database.AttendanceRecord) bool {
		return filter.Matches(&r)
	})
	return int64(before - len(m.records))
}

func (m *MockStore) classLocked(classID string) *database.ClassGroup {
	for _, c := range m.classes {
		if c.ClassID == classID {
			return c
		}
	}
	return nil
}

// GetStudentsInClass returns the roster of a class
func (m *MockStore) GetStudentsInClass(ctx context.Context, classID string) ([]string, error) {
	if m.RosterError != nil {
		return nil, m.RosterError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c := m.classLocked(classID); c != nil {
		return slices.Clone(c.Students), nil
	}
	return nil, nil
}

// ListClasses returns copies of all classes
func (m *MockStore) ListClasses(ctx context.Context) ([]database.ClassGroup, error) {
	if m.GetClassError != nil {
		return nil, m.GetClassError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.ClassGroup, 0, len(m.classes))
	for _, c := range m.classes {
		cp := *c
		cp.Students = slices.Clone(c.Students)
		cp.Subjects = slices.Clone(c.Subjects)
		out = append(out, cp)
	}
	return out, nil
}

// GetClass returns a copy of a class, nil if not found
func (m *MockStore) GetClass(ctx context.Context, classID string) (*database.ClassGroup, error) {
	if m.GetClassError != nil {
		return nil, m.GetClassError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := m.classLocked(classID)
	if c == nil {
		return nil, nil
	}
	cp := *c
	cp.Students = slices.Clone(c.Students)
	cp.Subjects = slices.Clone(c.Subjects)
	return &cp, nil
}

// CreateClass creates an empty class
func (m *MockStore) CreateClass(ctx context.Context, classID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.classLocked(classID) != nil {
		return false, nil
	}
	m.classes = append(m.classes, &database.ClassGroup{ClassID: classID})
	return true, nil
}

// DeleteClass removes a class and its records
func (m *MockStore) DeleteClass(ctx context.Context, classID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes = slices.DeleteFunc(m.classes, func(c *database.ClassGroup) bool { return c.ClassID == classID })
	m.deleteRecordsLocked(database.RecordFilter{ClassID: classID})
	return nil
}

// AddSubject appends a subject
func (m *MockStore) AddSubject(ctx context.Context, classID string, subject database.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.classLocked(classID)
	if c == nil {
		return database.ErrClassNotFound
	}
	c.Subjects = append(c.Subjects, subject)
	return nil
}

// UpdateSubject replaces the subject at index
func (m *MockStore) UpdateSubject(ctx context.Context, classID string, index int, subject database.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.classLocked(classID)
	if c == nil {
		return database.ErrClassNotFound
	}
	if index < 0 || index >= len(c.Subjects) {
		return database.ErrSubjectNotFound
	}
	c.Subjects[index] = subject
	return nil
}

// RemoveSubject deletes the subject at index
func (m *MockStore) RemoveSubject(ctx context.Context, classID string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.classLocked(classID)
	if c == nil {
		return database.ErrClassNotFound
	}
	if index < 0 || index >= len(c.Subjects) {
		return database.ErrSubjectNotFound
	}
	c.Subjects = slices.Delete(c.Subjects, index, index+1)
	return nil
}

// AddStudent adds a student to a roster
func (m *MockStore) AddStudent(ctx context.Context, classID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.classLocked(classID)
	if c == nil {
		return database.ErrClassNotFound
	}
	if !slices.Contains(c.Students, name) {
		c.Students = append(c.Students, name)
	}
	return nil
}

// RemoveStudent removes a student from a roster and drops their records for that class
func (m *MockStore) RemoveStudent(ctx context.Context, classID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.classLocked(classID); c != nil {
		c.Students = slices.DeleteFunc(c.Students, func(s string) bool { return s == name })
	}
	m.deleteRecordsLocked(database.RecordFilter{ClassID: classID, Name: name})
	return nil
}

// GetAllEmbeddings returns identities ordered by name
func (m *MockStore) GetAllEmbeddings(ctx context.Context) ([]database.Identity, error) {
	if m.EmbeddingsError != nil {
		return nil, m.EmbeddingsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Identity, 0, len(m.identities))
	for _, id := range m.identities {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListNames returns enrolled names ordered by name
func (m *MockStore) ListNames(ctx context.Context) ([]string, error) {
	ids, err := m.GetAllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ids))
	for i := range ids {
		names[i] = ids[i].Name
	}
	return names, nil
}

// SaveIdentity upserts an identity
func (m *MockStore) SaveIdentity(ctx context.Context, identity database.Identity) error {
	if m.SaveIdentityError != nil {
		return m.SaveIdentityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.Name] = identity
	return nil
}

// DeleteStudentGlobally removes the identity, roster memberships and records at once
func (m *MockStore) DeleteStudentGlobally(ctx context.Context, name string) error {
	if m.DeleteGlobalError != nil {
		return m.DeleteGlobalError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.identities, name)
	for _, c := range m.classes {
		c.Students = slices.DeleteFunc(c.Students, func(s string) bool { return s == name })
	}
	m.deleteRecordsLocked(database.RecordFilter{Name: name})
	return nil
}
