package lidcache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/matheus3301/walink/internal/ident"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 1000

// Mapping pairs a privacy identifier with the phone identifier it hides.
type Mapping struct {
	LID string `json:"lid"`
	PN  string `json:"pn"`
}

// Cache resolves privacy (LID) identifiers to phone identifiers under a
// fixed memory bound. Recency is strict: Get and Set both promote, and the
// least recently touched entry is evicted first.
type Cache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, string]
	capacity int
}

// New creates a cache holding at most capacity mappings.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, err := simplelru.NewLRU[string, string](capacity, nil)
	if err != nil {
		// Only returned for a non-positive size, which is excluded above.
		panic(err)
	}
	return &Cache{lru: l, capacity: capacity}
}

// Capacity returns the fixed maximum size.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Get returns the phone identifier mapped to key and promotes key.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Set inserts or replaces a mapping as most recently used. When the
// insertion overflows capacity the single oldest entry is evicted.
func (c *Cache) Set(key, value string) {
	if key == "" || value == "" {
		return
	}
	c.mu.Lock()
	c.lru.Add(key, value)
	c.mu.Unlock()
}

// Resolve maps a privacy identifier to its phone identifier. Identifiers
// that are not privacy-shaped, and unknown privacy identifiers, are
// returned unchanged.
func (c *Cache) Resolve(id string) string {
	if !ident.IsPrivacyID(id) {
		return id
	}
	if pn, ok := c.Get(ident.Normalize(id)); ok {
		return pn
	}
	return id
}

// Len returns the number of cached mappings.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear drops every mapping.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
}

// Snapshot exports the mappings from least to most recently used without
// touching recency. Replaying it through Import restores the same order.
func (c *Cache) Snapshot() []Mapping {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.lru.Keys()
	out := make([]Mapping, 0, len(keys))
	for _, k := range keys {
		if v, ok := c.lru.Peek(k); ok {
			out = append(out, Mapping{LID: k, PN: v})
		}
	}
	return out
}

// Import replays mappings in order, as if each had been Set.
func (c *Cache) Import(mappings []Mapping) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range mappings {
		if m.LID == "" || m.PN == "" {
			continue
		}
		c.lru.Add(m.LID, m.PN)
	}
}
