package blocker

import (
	"github.com/haukened/hostblock/internal/hostblock/domain"
	"github.com/haukened/hostblock/internal/hostblock/repos/rulefile"
)

// RuleSource supplies parsed rules and change detection for one rule file.
// Implemented by rulefile.Source; faked in tests.
type RuleSource interface {
	// Load parses the file and returns rules plus the fingerprint they were
	// read under. An error means the previous generation must be kept.
	Load() ([]domain.BlockRule, rulefile.Snapshot, error)
	// Changed reports whether the file differs from last and is stable
	// enough to re-read.
	Changed(last rulefile.Snapshot) bool
	// Path identifies the file for logging.
	Path() string
}

// CacheStats captures decision cache counters.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// DecisionCache caches block decisions by normalized domain. Each generation
// owns its own cache, so entries never outlive the index they were computed
// against. Implementations must be safe for concurrent use.
type DecisionCache interface {
	Get(name string) (domain.Decision, bool)
	Put(name string, d domain.Decision)
	Stats() CacheStats
}

// CacheFactory builds one DecisionCache per generation.
type CacheFactory interface {
	New() DecisionCache
}

// Service is the caller-facing surface: one Resolve per name-resolution
// attempt, plus the administrative conveniences.
type Service interface {
	Resolve(name string) (blocked bool, address string)
	ForceReload() error
	Stats() Stats
}
