package blocker

import "github.com/haukened/hostblock/internal/hostblock/domain"

// Noop is a Service that blocks nothing. Used when no rule file is
// configured so callers keep a single code path.
type Noop struct{}

// Resolve always allows.
func (Noop) Resolve(string) (bool, string) { return false, "" }

// ForceReload is a no-op.
func (Noop) ForceReload() error { return nil }

// Stats reports an empty, never-loaded state.
func (Noop) Stats() Stats { return Stats{} }

var _ Service = Noop{}

// nopCacheFactory produces no-op caches; the fallback when no CacheFactory
// is configured.
type nopCacheFactory struct{}

func (nopCacheFactory) New() DecisionCache { return nopCache{} }

type nopCache struct{}

func (nopCache) Get(string) (domain.Decision, bool) { return domain.Decision{}, false }
func (nopCache) Put(string, domain.Decision)        {}
func (nopCache) Stats() CacheStats                  { return CacheStats{} }
