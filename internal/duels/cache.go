package duels

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
)

// Cache is an immutable snapshot of every known GameRecord, keyed by game id.
// Sync cycles never mutate a snapshot; With produces a new one, which keeps
// crash-safety reasoning simple and lets tests hold independent caches.
type Cache struct {
	games []GameRecord
	index map[string]int
}

// NewCache builds a snapshot from records. A duplicate game id is rejected:
// the durable store must never contain one, so seeing it here means the
// underlying data is bad.
func NewCache(records ...GameRecord) (*Cache, error) {
	c := &Cache{
		games: make([]GameRecord, 0, len(records)),
		index: make(map[string]int, len(records)),
	}
	for _, r := range records {
		if _, ok := c.index[r.GameID]; ok {
			return nil, fmt.Errorf("game %s: %w", r.GameID, ErrDuplicateGame)
		}
		c.index[r.GameID] = len(c.games)
		c.games = append(c.games, r)
	}
	return c, nil
}

// Has reports whether a game id is already cached.
func (c *Cache) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Len returns the number of cached games.
func (c *Cache) Len() int {
	return len(c.games)
}

// Games returns the cached records in insertion order. The slice is a copy;
// callers cannot corrupt the snapshot through it.
func (c *Cache) Games() []GameRecord {
	out := make([]GameRecord, len(c.games))
	copy(out, c.games)
	return out
}

// IDs returns the cached game ids, sorted for determinism.
func (c *Cache) IDs() []string {
	ids := maps.Keys(c.index)
	sort.Strings(ids)
	return ids
}

// With returns a new snapshot containing the existing records plus records.
func (c *Cache) With(records ...GameRecord) (*Cache, error) {
	next := &Cache{
		games: make([]GameRecord, len(c.games), len(c.games)+len(records)),
		index: make(map[string]int, len(c.games)+len(records)),
	}
	copy(next.games, c.games)
	for id, i := range c.index {
		next.index[id] = i
	}
	for _, r := range records {
		if _, ok := next.index[r.GameID]; ok {
			return nil, fmt.Errorf("game %s: %w", r.GameID, ErrDuplicateGame)
		}
		next.index[r.GameID] = len(next.games)
		next.games = append(next.games, r)
	}
	return next, nil
}
