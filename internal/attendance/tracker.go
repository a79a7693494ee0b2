// Package attendance holds the active session and turns verified faces into
// Absent to Present/Late transitions.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
)

// Session is the active (class, subject) scope.
type Session struct {
	ClassID      string           `json:"class_id"`
	SubjectIndex int              `json:"subject_index"`
	Subject      database.Subject `json:"subject"`
	ActivatedAt  time.Time        `json:"activated_at"`
}

// ScanStatus is what the active session says about one identity.
type ScanStatus int

const (
	ScanNone       ScanStatus = iota // no active session
	ScanNotInClass                   // not on the class roster
	ScanMarked                       // Present or Late already
	ScanReady                        // may be marked
)

func (s ScanStatus) String() string {
	switch s {
	case ScanNotInClass:
		return "not_in_class"
	case ScanMarked:
		return "marked"
	case ScanReady:
		return "ready"
	default:
		return "none"
	}
}

// Eligibility adapts a ScanStatus for the matcher.
func (s ScanStatus) Eligibility() facematch.Eligibility {
	switch s {
	case ScanReady:
		return facematch.Ready
	case ScanMarked:
		return facematch.AlreadyMarked
	default:
		return facematch.Ineligible
	}
}

// Tracker owns the active session. All methods are safe for concurrent use;
// the lock only guards field swaps, never store calls.
type Tracker struct {
	records     database.RecordWriter
	roster      database.RosterReader
	now         func() time.Time
	defaultLate string

	mu         sync.RWMutex
	session    *Session
	lastUpdate time.Time

	events broadcaster
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithDefaultLateTime sets the cutoff used for subjects without one.
func WithDefaultLateTime(lateTime string) Option {
	return func(t *Tracker) {
		if lateTime != "" {
			t.defaultLate = lateTime
		}
	}
}

// NewTracker creates a tracker with no active session.
func NewTracker(records database.RecordWriter, roster database.RosterReader, opts ...Option) *Tracker {
	t := &Tracker{
		records:     records,
		roster:      roster,
		now:         time.Now,
		defaultLate: constants.DefaultLateTime,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastUpdate = t.now()
	return t
}

func (t *Tracker) today() string {
	return t.now().Format(constants.DateLayout)
}

// Today returns the current date in record format.
func (t *Tracker) Today() string {
	return t.today()
}

// Dates returns all dates with records, newest first, with today always
// present even before any record exists.
func (t *Tracker) Dates(ctx context.Context) ([]string, error) {
	dates, err := t.records.DistinctDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dates: %w", err)
	}
	today := t.today()
	if slices.Contains(dates, today) {
		return dates, nil
	}
	return append([]string{today}, dates...), nil
}

// Activate makes (classID, subject) the current scope and creates an Absent
// record for every roster member that has none for today. Calling it again
// with the same scope inserts nothing new.
func (t *Tracker) Activate(ctx context.Context, classID string, subjectIndex int, subject database.Subject) error {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return errors.New("class ID is required")
	}
	sess := Session{
		ClassID:      classID,
		SubjectIndex: subjectIndex,
		Subject:      subject,
		ActivatedAt:  t.now(),
	}

	t.mu.Lock()
	t.session = &sess
	t.mu.Unlock()

	log.Printf("Session active: %s - %s", sess.ClassID, sess.Subject.Name)
	t.events.send(Event{Type: EventSession, ClassID: sess.ClassID, Subject: sess.Subject.Name, At: sess.ActivatedAt})

	return t.ensureRecords(ctx, sess)
}

// ensureRecords inserts Absent records for roster members missing one today.
func (t *Tracker) ensureRecords(ctx context.Context, sess Session) error {
	students, err := t.roster.GetStudentsInClass(ctx, sess.ClassID)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	if len(students) == 0 {
		return nil
	}

	date := t.today()
	existing, err := t.records.Find(ctx, database.RecordFilter{
		ClassID: sess.ClassID,
		Subject: sess.Subject.Name,
		Date:    date,
	})
	if err != nil {
		return fmt.Errorf("load existing records: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		have[r.Name] = struct{}{}
	}

	var missing []database.AttendanceRecord
	for _, student := range students {
		if _, ok := have[student]; ok {
			continue
		}
		have[student] = struct{}{}
		missing = append(missing, database.AttendanceRecord{
			Name:    student,
			ClassID: sess.ClassID,
			Teacher: sess.Subject.Teacher,
			Subject: sess.Subject.Name,
			Date:    date,
			Time:    constants.TimePlaceholder,
			Status:  database.StatusAbsent,
		})
	}
	if len(missing) == 0 {
		return nil
	}

	inserted, err := t.records.InsertMany(ctx, missing)
	if err != nil {
		return fmt.Errorf("insert absent records: %w", err)
	}
	if inserted > 0 {
		t.touch()
		log.Printf("Added %d absent records for %s - %s", inserted, sess.ClassID, sess.Subject.Name)
		t.events.send(Event{Type: EventInitialized, ClassID: sess.ClassID, Subject: sess.Subject.Name, Count: inserted, At: t.now()})
	}
	return nil
}

// Refresh re-creates missing Absent records of the active session for today.
// Used after roster changes and at day rollover.
func (t *Tracker) Refresh(ctx context.Context) error {
	sess, ok := t.Current()
	if !ok {
		return nil
	}
	return t.ensureRecords(ctx, sess)
}

// Current returns the active session.
func (t *Tracker) Current() (Session, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.session == nil {
		return Session{}, false
	}
	return *t.session, true
}

// Deactivate clears the active session. Records are not touched.
func (t *Tracker) Deactivate() {
	t.mu.Lock()
	had := t.session != nil
	t.session = nil
	t.mu.Unlock()
	if had {
		t.events.send(Event{Type: EventSession, At: t.now()})
	}
}

// rosterName resolves name to its spelling on the class roster, ignoring case.
// Records are created from roster names, so lookups must use that spelling.
func (t *Tracker) rosterName(ctx context.Context, classID, name string) (string, bool, error) {
	students, err := t.roster.GetStudentsInClass(ctx, classID)
	if err != nil {
		return "", false, fmt.Errorf("load roster: %w", err)
	}
	canonical, ok := facematch.RosterName(students, name)
	return canonical, ok, nil
}

// ScanStatus reports whether name may be marked in the active session.
// Roster membership ignores case.
func (t *Tracker) ScanStatus(ctx context.Context, name string) (ScanStatus, error) {
	sess, ok := t.Current()
	if !ok {
		return ScanNone, nil
	}

	canonical, inClass, err := t.rosterName(ctx, sess.ClassID, name)
	if err != nil {
		return ScanNone, err
	}
	if !inClass {
		return ScanNotInClass, nil
	}

	rec, err := t.records.FindOne(ctx, database.RecordFilter{
		Name:    canonical,
		ClassID: sess.ClassID,
		Subject: sess.Subject.Name,
		Date:    t.today(),
	})
	if err != nil {
		return ScanNone, fmt.Errorf("load record: %w", err)
	}
	if rec != nil && rec.Status.IsMarked() {
		return ScanMarked, nil
	}
	return ScanReady, nil
}

// Eligibility is ScanStatus in the matcher's terms.
func (t *Tracker) Eligibility(ctx context.Context, name string) (facematch.Eligibility, error) {
	status, err := t.ScanStatus(ctx, name)
	if err != nil {
		return facematch.Ineligible, err
	}
	return status.Eligibility(), nil
}

// Mark moves name's record in the active session from Absent to Present or Late.
// Returns true only when this call performed the transition.
func (t *Tracker) Mark(ctx context.Context, name string) (bool, error) {
	sess, ok := t.Current()
	if !ok {
		return false, nil
	}

	canonical, inClass, err := t.rosterName(ctx, sess.ClassID, name)
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", name, err)
	}
	if !inClass {
		return false, nil
	}
	name = canonical

	now := t.now()
	status := Classify(now, sess.Subject.LateTime, t.defaultLate)
	timeOfDay := now.Format(constants.ClockLayout)
	key := database.RecordKey{
		Name:    name,
		ClassID: sess.ClassID,
		Subject: sess.Subject.Name,
		Date:    now.Format(constants.DateLayout),
	}

	updated, err := t.records.MarkIfAbsent(ctx, key, status, timeOfDay, now)
	if err != nil {
		return false, fmt.Errorf("mark %s: %w", name, err)
	}
	if !updated {
		return false, nil
	}

	t.touch()
	log.Printf("Marked %s as %s (%s - %s)", name, status, sess.ClassID, sess.Subject.Name)
	t.events.send(Event{
		Type:    EventMarked,
		ClassID: sess.ClassID,
		Subject: sess.Subject.Name,
		Name:    name,
		Status:  string(status),
		Time:    timeOfDay,
		At:      now,
	})
	return true, nil
}

// RecordsFor returns records of date (today when empty) sorted by name.
// With an active session only that session's class and subject are included.
func (t *Tracker) RecordsFor(ctx context.Context, date string) ([]database.AttendanceRecord, error) {
	if date == "" {
		date = t.today()
	}
	filter := database.RecordFilter{Date: date}
	if sess, ok := t.Current(); ok {
		filter.ClassID = sess.ClassID
		filter.Subject = sess.Subject.Name
	}

	records, err := t.records.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	slices.SortStableFunc(records, func(a, b database.AttendanceRecord) int {
		return strings.Compare(a.Name, b.Name)
	})
	return records, nil
}

// LastUpdate returns when records last changed through this tracker.
func (t *Tracker) LastUpdate() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastUpdate
}

func (t *Tracker) touch() {
	t.mu.Lock()
	t.lastUpdate = t.now()
	t.mu.Unlock()
}

// Touch records an out-of-band change, e.g. records removed by a cascade.
func (t *Tracker) Touch() {
	t.touch()
	t.events.send(Event{Type: EventChanged, At: t.now()})
}

// Subscribe returns a channel receiving tracker events. Slow readers miss events.
func (t *Tracker) Subscribe() chan Event {
	return t.events.add()
}

// Subscribers returns the number of open subscriptions.
func (t *Tracker) Subscribers() int {
	return t.events.count()
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (t *Tracker) Unsubscribe(ch chan Event) {
	t.events.remove(ch)
}

// SubjectRemoved keeps the active session pointing at the same subject after
// the subject at index was deleted from classID.
func (t *Tracker) SubjectRemoved(classID string, index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil || t.session.ClassID != classID {
		return
	}
	switch {
	case index == t.session.SubjectIndex:
		t.session = nil
	case index < t.session.SubjectIndex:
		t.session.SubjectIndex--
	}
}

// SubjectUpdated refreshes the active session's subject when it was edited.
func (t *Tracker) SubjectUpdated(ctx context.Context, classID string, index int, subject database.Subject) error {
	t.mu.Lock()
	if t.session == nil || t.session.ClassID != classID || t.session.SubjectIndex != index {
		t.mu.Unlock()
		return nil
	}
	t.session.Subject = subject
	sess := *t.session
	t.mu.Unlock()

	return t.ensureRecords(ctx, sess)
}

// ClassRemoved clears the session if it belonged to classID.
func (t *Tracker) ClassRemoved(classID string) {
	t.mu.Lock()
	cleared := t.session != nil && t.session.ClassID == classID
	if cleared {
		t.session = nil
	}
	t.mu.Unlock()
	if cleared {
		t.events.send(Event{Type: EventSession, At: t.now()})
	}
}

// StudentAdded creates the student's Absent record when their class is active.
func (t *Tracker) StudentAdded(ctx context.Context, classID string) error {
	sess, ok := t.Current()
	if !ok || sess.ClassID != classID {
		return nil
	}
	return t.ensureRecords(ctx, sess)
}
