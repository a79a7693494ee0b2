package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// HNSW index parameters for face descriptors
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// HNSWSearchCandidates is how many neighbors are pulled before exact re-ranking.
	HNSWSearchCandidates = 8
)

// IdentityIndex wraps an HNSW graph keyed by identity name for nearest-neighbor lookups.
type IdentityIndex struct {
	graph    *hnsw.Graph[string]
	byName   map[string][]float32
	dims     int
	distance DistanceFunc
	mu       sync.RWMutex
}

// NewIdentityIndex builds an index over the given identities using metric ("euclidean" or "cosine").
func NewIdentityIndex(identities []Identity, metric string) *IdentityIndex {
	idx := &IdentityIndex{
		byName:   make(map[string][]float32, len(identities)),
		distance: DistanceByName(metric),
	}
	idx.build(identities, metric)
	return idx
}

func (h *IdentityIndex) build(identities []Identity, metric string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(identities) == 0 {
		h.graph = nil
		return
	}

	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	if metric == "cosine" {
		g.Distance = hnsw.CosineDistance
	} else {
		g.Distance = hnsw.EuclideanDistance
	}

	// The graph requires one dimension; embeddings of any other length are left out.
	h.dims = dominantDims(identities)
	for _, id := range identities {
		if len(id.Embedding) == 0 || len(id.Embedding) != h.dims {
			continue
		}
		g.Add(hnsw.MakeNode(id.Name, id.Embedding))
		h.byName[id.Name] = id.Embedding
	}
	h.graph = g
}

// dominantDims returns the most common non-zero embedding length.
// Ties go to the length seen first.
func dominantDims(identities []Identity) int {
	counts := make(map[int]int)
	dims, best := 0, 0
	for _, id := range identities {
		n := len(id.Embedding)
		if n == 0 {
			continue
		}
		counts[n]++
		if counts[n] > best {
			dims, best = n, counts[n]
		}
	}
	return dims
}

// Nearest returns the closest identity name and its exact distance.
// Candidates from the graph are re-ranked with the exact distance function.
func (h *IdentityIndex) Nearest(query []float32) (string, float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return "", MaxDistance, errors.New("index not initialized")
	}
	if len(query) != h.dims {
		return "", MaxDistance, fmt.Errorf("query has %d dimensions, index has %d", len(query), h.dims)
	}

	neighbors := h.graph.Search(query, HNSWSearchCandidates)
	best, bestDist := "", MaxDistance
	for _, n := range neighbors {
		if d := h.distance(query, n.Value); d < bestDist {
			best, bestDist = n.Key, d
		}
	}
	if best == "" {
		return "", MaxDistance, errors.New("no neighbors found")
	}
	return best, bestDist, nil
}

// Dims returns the embedding length of the indexed identities.
func (h *IdentityIndex) Dims() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dims
}

// Count returns the number of indexed identities.
func (h *IdentityIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byName)
}
