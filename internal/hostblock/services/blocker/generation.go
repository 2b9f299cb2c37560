package blocker

import (
	"strings"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/hostblock/internal/hostblock/domain"
	"github.com/haukened/hostblock/internal/hostblock/repos/index"
	"github.com/haukened/hostblock/internal/hostblock/repos/rulefile"
)

// generation is the atomic unit of service state: one immutable index, its
// address pool, a negative-lookup prefilter and a decision cache, all built
// from one successful parse, plus the file fingerprint they were built from.
// Exactly one generation is current at any instant; readers that loaded a
// generation keep using it even while a newer one is being installed.
type generation struct {
	index  index.Index
	pool   *index.Pool
	filter *bitsbloom.BloomFilter
	cache  DecisionCache
	snap   rulefile.Snapshot
}

// loaded reports whether this generation came from a successful load. Only
// the initial pre-load generation carries a zero fingerprint.
func (g *generation) loaded() bool { return !g.snap.IsZero() }

// emptyGeneration is the state before any successful load: everything
// resolves to not-blocked (fail open).
func emptyGeneration(cache DecisionCache) *generation {
	return &generation{
		index: index.Index{},
		pool:  index.NewPool(),
		cache: cache,
	}
}

// newGeneration builds a complete generation from parsed rules. The bloom
// filter holds every index key, so a domain whose exact form and wildcard
// candidates all test negative can be allowed without touching the index.
func newGeneration(rules []domain.BlockRule, snap rulefile.Snapshot, cache DecisionCache, fpRate float64) *generation {
	pool := index.NewPool()
	idx := index.Build(rules, pool)

	var filter *bitsbloom.BloomFilter
	if n := idx.Len(); n > 0 {
		filter = bitsbloom.NewWithEstimates(uint(n), fpRate)
		for key := range idx {
			filter.AddString(key)
		}
	}

	return &generation{
		index:  idx,
		pool:   pool,
		filter: filter,
		cache:  cache,
		snap:   snap,
	}
}

// lookup answers for one normalized domain, pipeline: bloom → cache → index.
func (g *generation) lookup(name string) domain.Decision {
	if len(g.index) == 0 {
		return domain.EmptyDecision()
	}
	if !g.mightMatch(name) {
		return domain.EmptyDecision()
	}
	if d, ok := g.cache.Get(name); ok {
		return d
	}

	d := domain.EmptyDecision()
	if h, matched, ok := g.index.Lookup(name); ok {
		d = domain.Decision{Blocked: true, Address: *h, MatchedKey: matched}
	}
	g.cache.Put(name, d)
	return d
}

// mightMatch tests the exact name and every wildcard candidate (the apex
// form "."+name plus each dot-anchored suffix) against the prefilter. False
// negatives are impossible; a false positive only costs the index probes
// that would have happened anyway.
func (g *generation) mightMatch(name string) bool {
	if g.filter == nil {
		return true
	}
	if g.filter.TestString(name) {
		return true
	}
	// Same candidate set as Index.Lookup: apex probe only for names that
	// neither begin with the separator nor lack one, suffix walk always.
	if !strings.HasPrefix(name, domain.Wildcard) && strings.IndexByte(name, '.') >= 0 {
		if g.filter.TestString(domain.Wildcard + name) {
			return true
		}
	}
	pos := 0
	for {
		j := strings.IndexByte(name[pos:], '.')
		if j < 0 {
			return false
		}
		i := pos + j
		if g.filter.TestString(name[i:]) {
			return true
		}
		pos = i + 1
	}
}
