package blocker

import (
	"sync"
	"sync/atomic"

	logpkg "github.com/haukened/hostblock/internal/hostblock/common/log"
	"github.com/haukened/hostblock/internal/hostblock/common/utils"
)

// Blocker answers, for every name-resolution attempt, whether a domain is
// blocked and which substitute address to return. It owns the current
// generation and reloads the rule file on demand: lookups read the current
// generation through an atomic pointer with no lock, and only the
// parse-and-publish step of a reload takes the writer mutex.
type Blocker struct {
	source RuleSource
	caches CacheFactory
	logger logpkg.Logger
	fpRate float64

	current atomic.Pointer[generation]
	reload  sync.Mutex
}

// Options configures a Blocker.
type Options struct {
	Source RuleSource
	Caches CacheFactory
	Logger logpkg.Logger
	// BloomFPRate is the target false-positive rate of the per-generation
	// prefilter. Values outside (0,1) fall back to 1%.
	BloomFPRate float64
}

// Stats reports observability counters for the current generation. A zero
// RuleCount with Loaded=false means no rule file has ever loaded and the
// service is failing open.
type Stats struct {
	RuleCount          int
	UniqueAddressCount int
	Loaded             bool
	Cache              CacheStats
}

// New constructs a Blocker. The first load happens lazily on the first
// Resolve (the change detector sees the zero fingerprint as a change), or
// eagerly via ForceReload.
func New(opts Options) *Blocker {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNoopLogger()
	}
	fpRate := opts.BloomFPRate
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	caches := opts.Caches
	if caches == nil {
		caches = nopCacheFactory{}
	}
	b := &Blocker{
		source: opts.Source,
		caches: caches,
		logger: logger,
		fpRate: fpRate,
	}
	b.current.Store(emptyGeneration(caches.New()))
	return b
}

// Resolve reports whether name is blocked and, if so, the substitute
// address. It never fails: whenever the index has nothing to offer the
// answer is (false, ""), including before any successful load.
//
// Fast path: one change-detector check against the current generation's
// fingerprint, then a lock-free lookup. Slow path: escalate to the reload
// mutex, re-check (another caller may have reloaded first), parse, install.
func (b *Blocker) Resolve(name string) (bool, string) {
	cn := utils.NormalizeDomain(name)

	gen := b.current.Load()
	if b.source.Changed(gen.snap) {
		gen = b.reloadIfStale()
	}

	d := gen.lookup(cn)
	return d.Blocked, d.Address
}

// reloadIfStale performs the double-checked reload: under the writer mutex,
// re-validate the change against the now-current generation and only then
// parse and install. Returns the generation the caller should use.
func (b *Blocker) reloadIfStale() *generation {
	b.reload.Lock()
	defer b.reload.Unlock()

	gen := b.current.Load()
	if !b.source.Changed(gen.snap) {
		// Someone else already reloaded, or the file settled back.
		return gen
	}
	if next, err := b.rebuild(); err == nil {
		return next
	}
	return b.current.Load()
}

// ForceReload unconditionally parses the rule file and installs a new
// generation, bypassing the change detector. On failure the previous
// generation stays current and the error is returned for logging.
func (b *Blocker) ForceReload() error {
	b.reload.Lock()
	defer b.reload.Unlock()
	_, err := b.rebuild()
	return err
}

// rebuild parses the file and publishes a new generation. Caller must hold
// the reload mutex. The index, pool, filter and cache are replaced as one
// unit; a failed parse replaces nothing.
func (b *Blocker) rebuild() (*generation, error) {
	rules, snap, err := b.source.Load()
	if err != nil {
		b.logger.Warn(map[string]any{
			"path":  b.source.Path(),
			"error": err.Error(),
		}, "rule file reload failed, keeping previous rules")
		return nil, err
	}

	next := newGeneration(rules, snap, b.caches.New(), b.fpRate)
	b.current.Store(next)

	b.logger.Info(map[string]any{
		"path":      b.source.Path(),
		"rules":     next.index.Len(),
		"addresses": next.pool.Len(),
	}, "rule file loaded")
	return next, nil
}

// Stats returns counters for the current generation.
func (b *Blocker) Stats() Stats {
	gen := b.current.Load()
	return Stats{
		RuleCount:          gen.index.Len(),
		UniqueAddressCount: gen.pool.Len(),
		Loaded:             gen.loaded(),
		Cache:              gen.cache.Stats(),
	}
}

var _ Service = (*Blocker)(nil)
