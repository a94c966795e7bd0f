package affinity

import (
	"context"
	"sync"

	"github.com/abasto-labs/tendero/pkg/dataset"
)

// Cache lazily builds the co-purchase graph from a basket source and hands
// out immutable snapshots. Rebuild swaps in a fresh graph wholesale; readers
// holding an older snapshot are unaffected.
type Cache struct {
	source dataset.BasketSource

	mu    sync.Mutex
	graph *Graph
}

func NewCache(source dataset.BasketSource) *Cache {
	return &Cache{source: source}
}

// Snapshot returns the current graph, building it on first use.
func (c *Cache) Snapshot(ctx context.Context) (*Graph, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.graph != nil {
		return c.graph, nil
	}
	return c.rebuildLocked(ctx)
}

// Rebuild re-reads the basket source and replaces the cached graph.
func (c *Cache) Rebuild(ctx context.Context) (*Graph, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildLocked(ctx)
}

func (c *Cache) rebuildLocked(ctx context.Context) (*Graph, error) {
	baskets, err := c.source.Baskets(ctx)
	if err != nil {
		return nil, err
	}
	c.graph = Build(baskets)
	return c.graph, nil
}
