package facematch

import (
	"context"
	"fmt"

	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/database"
)

// Policy selects which identity wins when several are within tolerance.
type Policy string

const (
	// PolicyFirst takes the first identity under tolerance in KnownSet order.
	PolicyFirst Policy = "first"
	// PolicyNearest takes the identity with the smallest distance.
	PolicyNearest Policy = "nearest"
)

// ParsePolicy maps a config value to a Policy, defaulting to PolicyFirst.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyNearest {
		return PolicyNearest
	}
	return PolicyFirst
}

// KnownSet is an immutable snapshot of enrolled identities ordered by name.
type KnownSet struct {
	names      []string
	embeddings [][]float32
	index      *database.IdentityIndex
}

// NewKnownSet snapshots identities. When withIndex is set and the set is large
// enough, an HNSW graph is built for nearest-neighbor lookups.
func NewKnownSet(identities []database.Identity, metric string, withIndex bool) *KnownSet {
	k := &KnownSet{
		names:      make([]string, 0, len(identities)),
		embeddings: make([][]float32, 0, len(identities)),
	}
	for _, id := range identities {
		if len(id.Embedding) == 0 {
			continue
		}
		k.names = append(k.names, id.Name)
		k.embeddings = append(k.embeddings, id.Embedding)
	}
	if withIndex && len(k.names) >= constants.HNSWMinIdentities {
		k.index = database.NewIdentityIndex(identities, metric)
	}
	return k
}

// Len returns the number of identities in the set.
func (k *KnownSet) Len() int {
	if k == nil {
		return 0
	}
	return len(k.names)
}

// Names returns the identity names in match order.
func (k *KnownSet) Names() []string {
	if k == nil {
		return nil
	}
	return append([]string(nil), k.names...)
}

// Indexed reports whether nearest lookups go through the HNSW graph.
func (k *KnownSet) Indexed() bool {
	return k != nil && k.index != nil
}

// Matcher compares probe embeddings against a KnownSet.
type Matcher struct {
	tolerance float64
	policy    Policy
	distance  database.DistanceFunc
}

// NewMatcher creates a matcher. A distance equal to tolerance still matches.
func NewMatcher(tolerance float64, policy Policy, metric string) *Matcher {
	if tolerance <= 0 {
		tolerance = constants.DefaultMatchTolerance
	}
	return &Matcher{
		tolerance: tolerance,
		policy:    policy,
		distance:  database.DistanceByName(metric),
	}
}

// Tolerance returns the configured match tolerance.
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Match returns the identity matching probe under the configured policy.
// ok is false when nothing is within tolerance or the set is empty.
func (m *Matcher) Match(known *KnownSet, probe []float32) (name string, distance float64, ok bool) {
	if known.Len() == 0 || len(probe) == 0 {
		return "", database.MaxDistance, false
	}

	if m.policy == PolicyNearest {
		return m.nearest(known, probe)
	}

	for i, emb := range known.embeddings {
		if d := m.distance(probe, emb); d <= m.tolerance {
			return known.names[i], d, true
		}
	}
	return "", database.MaxDistance, false
}

func (m *Matcher) nearest(known *KnownSet, probe []float32) (string, float64, bool) {
	if known.index != nil && len(probe) == known.index.Dims() {
		if name, d, err := known.index.Nearest(probe); err == nil {
			return name, d, d <= m.tolerance
		}
	}

	best, bestDist := -1, database.MaxDistance
	for i, emb := range known.embeddings {
		if d := m.distance(probe, emb); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > m.tolerance {
		return "", database.MaxDistance, false
	}
	return known.names[best], bestDist, true
}

// Label matches every detection and resolves matched identities against the
// active session. The returned candidate is the last scannable face, empty if none.
// Eligibility errors mark the face unknown; the first one is returned alongside
// the results so the caller can log it.
func (m *Matcher) Label(ctx context.Context, dets []Detection, known *KnownSet, eligible EligibilityFunc) ([]FaceResult, string, error) {
	results := make([]FaceResult, 0, len(dets))
	candidate := ""
	var firstErr error

	for _, det := range dets {
		res := FaceResult{Box: det.Box, Label: constants.UnknownLabel, Status: StatusUnknown, Distance: database.MaxDistance}

		if name, d, ok := m.Match(known, det.Embedding); ok {
			res.Distance = d
			state, err := eligible(ctx, name)
			switch {
			case err != nil:
				if firstErr == nil {
					firstErr = fmt.Errorf("resolve %s: %w", name, err)
				}
			case state == Ready:
				res.Label, res.Status = name, StatusScannable
				candidate = name
			case state == AlreadyMarked:
				res.Label, res.Status = name, StatusDone
			}
		}
		results = append(results, res)
	}

	return results, candidate, firstErr
}
