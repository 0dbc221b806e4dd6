package store

import "sync"

// Position is a node's drawing coordinate, kept separate from the domain
// entities: what exists vs. where it is drawn.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PositionCache stores per-entity placements keyed by entity id. The default
// is in-memory; persistence is an additive concern behind this interface.
type PositionCache interface {
	Get(nodeID string) (Position, bool)
	Set(nodeID string, position Position)
	Snapshot() map[string]Position
	Reset()
}

type memoryPositionCache struct {
	mu        sync.RWMutex
	positions map[string]Position
}

func NewMemoryPositionCache() PositionCache {
	return &memoryPositionCache{positions: make(map[string]Position)}
}

func (c *memoryPositionCache) Get(nodeID string) (Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	position, ok := c.positions[nodeID]

	return position, ok
}

func (c *memoryPositionCache) Set(nodeID string, position Position) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.positions[nodeID] = position
}

func (c *memoryPositionCache) Snapshot() map[string]Position {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]Position, len(c.positions))
	for id, position := range c.positions {
		snapshot[id] = position
	}

	return snapshot
}

func (c *memoryPositionCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.positions = make(map[string]Position)
}
