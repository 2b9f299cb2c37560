package decision

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/hostblock/internal/hostblock/domain"
	"github.com/haukened/hostblock/internal/hostblock/services/blocker"
)

// cache is an LRU-backed implementation of blocker.DecisionCache.
// It tracks basic metrics: hits, misses, and evictions.
type cache struct {
	lru       *lru.Cache[string, domain.Decision]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op DecisionCache used when size <= 0.
type disabledCache struct{}

// Factory builds per-generation decision caches of a fixed capacity.
type Factory struct {
	size int
}

// NewFactory returns a CacheFactory producing caches of the given capacity.
// If size <= 0 every produced cache is a disabled no-op that always misses.
func NewFactory(size int) Factory {
	return Factory{size: size}
}

// New builds a fresh DecisionCache for one generation.
func (f Factory) New() blocker.DecisionCache {
	if f.size <= 0 {
		return &disabledCache{}
	}

	var c cache
	// NewWithEvict observes evictions; capacity errors cannot happen for
	// positive sizes, so fall back to disabled rather than propagate.
	l, err := lru.NewWithEvict(f.size, func(_ string, _ domain.Decision) {
		atomic.AddUint64(&c.evictions, 1)
	})
	if err != nil {
		return &disabledCache{}
	}
	c.lru = l
	return &c
}

// Get looks up a decision by name, counting hits and misses.
func (c *cache) Get(name string) (domain.Decision, bool) {
	if val, ok := c.lru.Get(name); ok {
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	var zero domain.Decision
	return zero, false
}

// Put stores a decision by name.
func (c *cache) Put(name string, d domain.Decision) {
	c.lru.Add(name, d)
}

// Stats returns cumulative counters and the current entry count.
func (c *cache) Stats() blocker.CacheStats {
	return blocker.CacheStats{
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Evictions: atomic.LoadUint64(&c.evictions),
		Size:      c.lru.Len(),
	}
}

// disabledCache implementation

func (d *disabledCache) Get(string) (domain.Decision, bool) {
	var zero domain.Decision
	return zero, false
}

func (d *disabledCache) Put(string, domain.Decision) {}

func (d *disabledCache) Stats() blocker.CacheStats { return blocker.CacheStats{} }

var _ blocker.DecisionCache = (*cache)(nil)
var _ blocker.DecisionCache = (*disabledCache)(nil)
var _ blocker.CacheFactory = Factory{}
