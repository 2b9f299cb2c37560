package rulefile

import (
	"fmt"
	"os"
	"time"

	"github.com/haukened/hostblock/internal/hostblock/common/clock"
	logpkg "github.com/haukened/hostblock/internal/hostblock/common/log"
	"github.com/haukened/hostblock/internal/hostblock/domain"
)

// Source combines the parser and the change detector for one rule file.
// It is the blocker service's view of the file: Load produces rules plus
// the fingerprint they were built from, Changed drives reload-on-demand.
type Source struct {
	path     string
	logger   logpkg.Logger
	detector *Detector
}

// NewSource constructs a Source for the rule file at path.
func NewSource(path string, delay time.Duration, clk clock.Clock, logger logpkg.Logger) *Source {
	if logger == nil {
		logger = logpkg.NewNoopLogger()
	}
	return &Source{
		path:     path,
		logger:   logger,
		detector: NewDetector(path, delay, clk),
	}
}

// Path returns the rule file path.
func (s *Source) Path() string { return s.path }

// Changed reports whether the file differs from the given snapshot and is
// currently stable enough to re-read.
func (s *Source) Changed(last Snapshot) bool {
	return s.detector.Changed(last)
}

// Load parses the rule file and returns its rules together with the
// fingerprint captured just before reading. Any failure leaves the caller's
// previous state untouched; a partially malformed file is not a failure,
// only an unreadable one is.
func (s *Source) Load() ([]domain.BlockRule, Snapshot, error) {
	snap, err := Stat(s.path)
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("stat rule file: %w", err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("open rule file: %w", err)
	}
	defer f.Close()

	rules, err := Parse(f, s.path, s.logger)
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("read rule file: %w", err)
	}
	return rules, snap, nil
}
