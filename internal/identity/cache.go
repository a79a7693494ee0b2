// Package identity owns the enrolled-face snapshot used by the live matcher
// and the enrollment/deletion operations that invalidate it.
package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
	"golang.org/x/sync/singleflight"
)

// Cache holds the current KnownSet. Readers get an immutable snapshot;
// Reload replaces it wholesale.
type Cache struct {
	store     database.IdentityReader
	metric    string
	withIndex bool

	mu       sync.RWMutex
	known    *facematch.KnownSet
	loadedAt time.Time

	sf singleflight.Group
}

// NewCache creates an empty cache. Call Reload before matching.
func NewCache(store database.IdentityReader, metric string, withIndex bool) *Cache {
	return &Cache{
		store:     store,
		metric:    metric,
		withIndex: withIndex,
		known:     facematch.NewKnownSet(nil, metric, false),
	}
}

// Reload reads every identity from the store and swaps the snapshot.
// Concurrent callers share one store read.
func (c *Cache) Reload(ctx context.Context) (int, error) {
	v, err, _ := c.sf.Do("reload", func() (any, error) {
		identities, err := c.store.GetAllEmbeddings(ctx)
		if err != nil {
			return nil, fmt.Errorf("load identities: %w", err)
		}
		known := facematch.NewKnownSet(identities, c.metric, c.withIndex)

		c.mu.Lock()
		c.known = known
		c.loadedAt = time.Now()
		c.mu.Unlock()

		return known.Len(), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Snapshot returns the current known set. Never nil.
func (c *Cache) Snapshot() *facematch.KnownSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.known
}

// LoadedAt returns when the snapshot was last replaced.
func (c *Cache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
