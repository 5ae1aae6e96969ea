package plans

import (
	"context"
	"sync"
	"time"

	"github.com/subgate/subgate-bot/types"
)

// Catalog is a read-only, time-invalidated cache over the plan list. All
// workflow instances share one catalog; a refresh replaces the whole slice.
type Catalog struct {
	store types.EntityStore
	ttl   time.Duration

	mu      sync.Mutex
	cached  []types.Plan
	expires time.Time
	now     func() time.Time
}

func NewCatalog(store types.EntityStore, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Catalog{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the cached plan list, refreshing it from the entity store when
// the TTL has lapsed. A failed refresh keeps the stale list unavailable and
// returns the error.
func (c *Catalog) Get(ctx context.Context) ([]types.Plan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.now().Before(c.expires) {
		return c.cached, nil
	}

	plans, err := c.store.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = plans
	c.expires = c.now().Add(c.ttl)
	return c.cached, nil
}

// Select resolves a 1-based plan index against the cached catalog.
func (c *Catalog) Select(ctx context.Context, index int) (*types.Plan, error) {
	list, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	if index < 1 || index > len(list) {
		return nil, nil
	}
	plan := list[index-1]
	return &plan, nil
}

func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
	c.expires = time.Time{}
}
