// Package directory keeps a cached copy of the identity roster and refreshes
// it from a Source on a fixed interval.
package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/grillo/internal/application"
)

// Source fetches the full identity roster.
type Source interface {
	Fetch(ctx context.Context) ([]application.Identity, error)
}

// Static serves a fixed roster, typically read from the YAML config file.
type Static struct {
	identities []application.Identity
}

// NewStatic copies identities into a static source.
func NewStatic(identities []application.Identity) *Static {
	out := make([]application.Identity, len(identities))
	copy(out, identities)
	return &Static{identities: out}
}

// Fetch returns a copy of the roster.
func (s *Static) Fetch(ctx context.Context) ([]application.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]application.Identity, len(s.identities))
	copy(out, s.identities)
	return out, nil
}

// Cache holds the last roster fetched. It satisfies application.IdentitySource.
type Cache struct {
	mu        sync.RWMutex
	byID      map[string]application.Identity
	fetchedAt time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{byID: map[string]application.Identity{}}
}

// Store replaces the cached roster.
func (c *Cache) Store(identities []application.Identity, at time.Time) {
	byID := make(map[string]application.Identity, len(identities))
	for _, identity := range identities {
		byID[identity.ID] = identity
	}
	c.mu.Lock()
	c.byID = byID
	c.fetchedAt = at
	c.mu.Unlock()
}

// FetchedAt reports when the roster was last stored. Zero means never.
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Identities returns every cached identity sorted by id.
func (c *Cache) Identities(ctx context.Context) ([]application.Identity, error) {
	c.mu.RLock()
	out := make([]application.Identity, 0, len(c.byID))
	for _, identity := range c.byID {
		out = append(out, identity)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Identity returns the cached identity with the given id.
func (c *Cache) Identity(ctx context.Context, id string) (application.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	identity, ok := c.byID[id]
	return identity, ok
}
