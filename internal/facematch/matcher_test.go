package facematch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/database"
)

func identities(pairs ...any) []database.Identity {
	var out []database.Identity
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, database.Identity{Name: pairs[i].(string), Embedding: pairs[i+1].([]float32)})
	}
	return out
}

func TestMatcher_Match(t *testing.T) {
	// Alice and Bob are both within tolerance of the probe; Bob is closer.
	known := NewKnownSet(identities(
		"Alice", []float32{0.4, 0},
		"Bob", []float32{0.1, 0},
		"Carol", []float32{5, 5},
	), "euclidean", false)
	probe := []float32{0, 0}

	tests := []struct {
		name      string
		policy    Policy
		tolerance float64
		probe     []float32
		wantName  string
		wantOK    bool
	}{
		{"first under tolerance wins", PolicyFirst, 0.5, probe, "Alice", true},
		{"nearest wins", PolicyNearest, 0.5, probe, "Bob", true},
		{"nothing within tolerance", PolicyFirst, 0.05, probe, "", false},
		{"nearest outside tolerance", PolicyNearest, 0.05, probe, "", false},
		{"empty probe", PolicyFirst, 0.5, nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.tolerance, tt.policy, "euclidean")
			name, _, ok := m.Match(known, tt.probe)
			if name != tt.wantName || ok != tt.wantOK {
				t.Errorf("Match() = (%q, %v), want (%q, %v)", name, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestMatcher_Match_ToleranceIsInclusive(t *testing.T) {
	known := NewKnownSet(identities("Alice", []float32{0, 0}), "euclidean", false)
	m := NewMatcher(0.5, PolicyFirst, "euclidean")

	if _, d, ok := m.Match(known, []float32{0.5, 0}); !ok || d != 0.5 {
		t.Errorf("Match() at exactly the tolerance = (%v, %v), want (0.5, true)", d, ok)
	}
	if _, _, ok := m.Match(known, []float32{0.5, 0.125}); ok {
		t.Error("Match() beyond the tolerance should fail")
	}
}

func TestMatcher_Match_EmptySet(t *testing.T) {
	m := NewMatcher(0.5, PolicyFirst, "euclidean")
	if _, _, ok := m.Match(NewKnownSet(nil, "euclidean", false), []float32{1}); ok {
		t.Error("empty known set must not match")
	}
	if _, _, ok := m.Match(nil, []float32{1}); ok {
		t.Error("nil known set must not match")
	}
}

func TestMatcher_DefaultTolerance(t *testing.T) {
	m := NewMatcher(0, PolicyFirst, "euclidean")
	if m.Tolerance() != constants.DefaultMatchTolerance {
		t.Errorf("Tolerance() = %v, want %v", m.Tolerance(), constants.DefaultMatchTolerance)
	}
}

func TestKnownSet_SkipsEmptyEmbeddings(t *testing.T) {
	known := NewKnownSet([]database.Identity{
		{Name: "Alice", Embedding: []float32{1}},
		{Name: "Ghost"},
	}, "euclidean", false)
	if known.Len() != 1 || known.Names()[0] != "Alice" {
		t.Errorf("Names() = %v", known.Names())
	}
}

func TestKnownSet_IndexedNearest(t *testing.T) {
	n := constants.HNSWMinIdentities
	ids := make([]database.Identity, 0, n)
	for i := range n {
		ids = append(ids, database.Identity{
			Name:      fmt.Sprintf("student-%03d", i),
			Embedding: []float32{float32(i), float32(i % 7)},
		})
	}
	known := NewKnownSet(ids, "euclidean", true)
	if !known.Indexed() {
		t.Fatal("expected HNSW index for a large set")
	}

	m := NewMatcher(0.5, PolicyNearest, "euclidean")
	name, _, ok := m.Match(known, []float32{42.1, 0})
	if !ok || name != "student-042" {
		t.Errorf("Match() = (%q, %v), want (student-042, true)", name, ok)
	}

	if NewKnownSet(ids[:10], "euclidean", true).Indexed() {
		t.Error("small sets should use a linear scan")
	}
}

func TestKnownSet_IndexedMixedDimensions(t *testing.T) {
	n := constants.HNSWMinIdentities
	ids := make([]database.Identity, 0, n+1)
	for i := range n {
		ids = append(ids, database.Identity{
			Name:      fmt.Sprintf("student-%03d", i),
			Embedding: []float32{float32(i), float32(i % 7)},
		})
	}
	ids = append(ids, database.Identity{Name: "zed", Embedding: []float32{1, 0, 0}})

	known := NewKnownSet(ids, "euclidean", true)
	if !known.Indexed() {
		t.Fatal("expected HNSW index for a large set")
	}
	m := NewMatcher(0.5, PolicyNearest, "euclidean")

	tests := []struct {
		name     string
		probe    []float32
		wantName string
		wantOK   bool
	}{
		{"indexed dimension", []float32{42.1, 0}, "student-042", true},
		{"other dimension falls back to linear scan", []float32{1, 0, 0.1}, "zed", true},
		{"unknown dimension", []float32{1, 2, 3, 4}, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			name, _, ok := m.Match(known, tc.probe)
			if name != tc.wantName || ok != tc.wantOK {
				t.Errorf("Match() = (%q, %v), want (%q, %v)", name, ok, tc.wantName, tc.wantOK)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	if ParsePolicy("nearest") != PolicyNearest {
		t.Error("nearest not parsed")
	}
	if ParsePolicy("bogus") != PolicyFirst {
		t.Error("unknown policies fall back to first")
	}
}

func TestMatcher_Label(t *testing.T) {
	known := NewKnownSet(identities(
		"Alice", []float32{0, 0},
		"Bob", []float32{10, 0},
		"Carol", []float32{20, 0},
		"Dave", []float32{30, 0},
	), "euclidean", false)
	m := NewMatcher(0.5, PolicyFirst, "euclidean")

	states := map[string]Eligibility{
		"Alice": Ready,
		"Bob":   AlreadyMarked,
		"Carol": Ineligible,
		"Dave":  Ready,
	}
	eligible := func(_ context.Context, name string) (Eligibility, error) {
		return states[name], nil
	}

	dets := []Detection{
		{Box: image.Rect(0, 0, 1, 1), Embedding: []float32{0, 0}},   // Alice
		{Box: image.Rect(1, 1, 2, 2), Embedding: []float32{10, 0}},  // Bob
		{Box: image.Rect(2, 2, 3, 3), Embedding: []float32{20, 0}},  // Carol, not in roster
		{Box: image.Rect(3, 3, 4, 4), Embedding: []float32{99, 99}}, // stranger
		{Box: image.Rect(4, 4, 5, 5), Embedding: []float32{30, 0}},  // Dave
	}

	results, candidate, err := m.Label(context.Background(), dets, known, eligible)
	if err != nil {
		t.Fatalf("Label() error = %v", err)
	}

	want := []struct {
		label  string
		status FaceStatus
	}{
		{"Alice", StatusScannable},
		{"Bob", StatusDone},
		{constants.UnknownLabel, StatusUnknown},
		{constants.UnknownLabel, StatusUnknown},
		{"Dave", StatusScannable},
	}
	for i, w := range want {
		if results[i].Label != w.label || results[i].Status != w.status {
			t.Errorf("results[%d] = (%q, %s), want (%q, %s)", i, results[i].Label, results[i].Status, w.label, w.status)
		}
		if results[i].Box != dets[i].Box {
			t.Errorf("results[%d].Box = %v, want %v", i, results[i].Box, dets[i].Box)
		}
	}
	if candidate != "Dave" {
		t.Errorf("candidate = %q, want last scannable face Dave", candidate)
	}
}

func TestMatcher_Label_EligibilityError(t *testing.T) {
	known := NewKnownSet(identities("Alice", []float32{0, 0}), "euclidean", false)
	m := NewMatcher(0.5, PolicyFirst, "euclidean")
	boom := errors.New("store down")

	results, candidate, err := m.Label(context.Background(),
		[]Detection{{Embedding: []float32{0, 0}}}, known,
		func(context.Context, string) (Eligibility, error) { return Ineligible, boom })

	if !errors.Is(err, boom) {
		t.Errorf("Label() error = %v, want wrapped %v", err, boom)
	}
	if candidate != "" || results[0].Status != StatusUnknown {
		t.Errorf("failed lookups must not produce candidates: %q %+v", candidate, results[0])
	}
}
