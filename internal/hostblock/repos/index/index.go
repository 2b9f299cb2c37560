package index

import (
	"strings"

	"github.com/haukened/hostblock/internal/hostblock/domain"
)

// Index maps a normalized rule key to its interned address handle. Keys
// beginning with "." are wildcard keys matching their own apex and every
// sub-domain. An Index is built fresh on each reload and immutable after
// Build returns.
type Index map[string]*string

// Build constructs an Index from rules in file order, interning addresses
// into pool. Later rules overwrite earlier ones with the same key; this
// last-wins behavior mirrors hosts-file override semantics and decides the
// winner when a domain is listed twice with conflicting targets.
func Build(rules []domain.BlockRule, pool *Pool) Index {
	idx := make(Index, len(rules))
	for _, r := range rules {
		idx[r.Key] = pool.Intern(r.Address)
	}
	return idx
}

// Lookup resolves a domain against the index using two-phase matching.
// The domain must already be lowercase-normalized.
//
// Phase 1 tries the full domain as an exact key. This also covers the
// degenerate case of looking up a wildcard key literally (".com" finds the
// ".com" entry here, not in phase 2).
//
// Phase 2 probes wildcard candidates from most specific to least specific:
// first the apex form "."+domain (so ".example.com" blocks "example.com"
// itself), then every suffix of the domain beginning at a separator, left
// to right. "ads.analytics.tracker.com" probes ".ads.analytics.tracker.com",
// ".analytics.tracker.com", ".tracker.com", ".com" in that order and stops
// on the first hit. A domain with no separator never matches a wildcard.
//
// The apex probe is skipped for names that already begin with the separator
// (prepending would form a double dot) and for names with no separator; the
// suffix walk always runs, so ".x.com" still falls through to ".com".
func (idx Index) Lookup(name string) (handle *string, matched string, ok bool) {
	if h, found := idx[name]; found {
		return h, name, true
	}

	if !strings.HasPrefix(name, domain.Wildcard) && strings.IndexByte(name, '.') >= 0 {
		if h, found := idx[domain.Wildcard+name]; found {
			return h, domain.Wildcard + name, true
		}
	}

	pos := 0
	for {
		j := strings.IndexByte(name[pos:], '.')
		if j < 0 {
			break
		}
		i := pos + j
		if h, found := idx[name[i:]]; found {
			return h, name[i:], true
		}
		pos = i + 1
	}
	return nil, "", false
}

// Len returns the number of rule keys in the index.
func (idx Index) Len() int { return len(idx) }
