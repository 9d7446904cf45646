package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"

	"golang.org/x/sync/singleflight"
)

// AgentIndex is one materialized retrieval index: the agent's vector-store
// collection synced to its document directory at build time.
type AgentIndex struct {
	AgentID    string
	Collection chromago.Collection
	Files      []string
	BuiltAt    time.Time
}

// IndexBuilder materializes an index for one agent. Implemented by
// FileIndexingService; faked in tests.
type IndexBuilder interface {
	Build(ctx context.Context, agentID string) (*AgentIndex, error)
}

// IndexCache maps agent id to at most one valid index. Builds for an
// uninitialized agent are a critical section: concurrent first queries share
// one in-flight build instead of racing to create duplicates.
//
// Invalidation bumps a per-agent generation; a build that started before the
// invalidation finishes harmlessly but is never cached, so no query can see
// an index that predates a document mutation.
type IndexCache struct {
	builder IndexBuilder
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]*AgentIndex
	gen     map[string]uint64

	group  singleflight.Group
	builds atomic.Int64
}

// NewIndexCache creates an empty cache over the given builder.
func NewIndexCache(builder IndexBuilder, logger *slog.Logger) *IndexCache {
	return &IndexCache{
		builder: builder,
		logger:  logger,
		entries: make(map[string]*AgentIndex),
		gen:     make(map[string]uint64),
	}
}

// Get returns the agent's index, building it if the cache is cold. Late
// arrivals during a build wait for the in-flight result.
func (c *IndexCache) Get(ctx context.Context, agentID string) (*AgentIndex, error) {
	c.mu.Lock()
	if idx, ok := c.entries[agentID]; ok {
		c.mu.Unlock()
		return idx, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(agentID, func() (any, error) {
		c.mu.Lock()
		if idx, ok := c.entries[agentID]; ok {
			c.mu.Unlock()
			return idx, nil
		}
		startGen := c.gen[agentID]
		c.mu.Unlock()

		c.builds.Add(1)
		idx, err := c.builder.Build(ctx, agentID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen[agentID] == startGen {
			c.entries[agentID] = idx
		} else {
			c.logger.Debug("discarding index built before invalidation", "component", "indexcache", "agent", agentID)
		}
		c.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*AgentIndex), nil
}

// Invalidate drops the agent's cached index. Called on every document
// mutation for that agent.
func (c *IndexCache) Invalidate(agentID string) {
	c.mu.Lock()
	delete(c.entries, agentID)
	c.gen[agentID]++
	c.mu.Unlock()
	c.group.Forget(agentID)
	c.logger.Debug("index invalidated", "component", "indexcache", "agent", agentID)
}

// Size returns the number of cached indexes, for the health endpoint.
func (c *IndexCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// BuildCount returns the total number of builder invocations.
func (c *IndexCache) BuildCount() int64 {
	return c.builds.Load()
}
