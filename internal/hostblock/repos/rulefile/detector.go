package rulefile

import (
	"time"

	"github.com/haukened/hostblock/internal/hostblock/common/clock"
)

// DefaultStabilityDelay is the pause between the two stability stats.
// Long enough to catch a writer that is still streaming, short enough to
// stay invisible on the lookup path that triggered the check.
const DefaultStabilityDelay = time.Millisecond

// Detector decides, from filesystem metadata alone, whether the rule file
// has changed since the last successful load and is safe to re-read.
type Detector struct {
	path  string
	delay time.Duration
	clk   clock.Clock
}

// NewDetector constructs a Detector for the file at path. A non-positive
// delay falls back to DefaultStabilityDelay.
func NewDetector(path string, delay time.Duration, clk clock.Clock) *Detector {
	if delay <= 0 {
		delay = DefaultStabilityDelay
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Detector{path: path, delay: delay, clk: clk}
}

// Changed reports whether a reload should happen given the snapshot captured
// at the last successful load.
//
// - A failed stat means "keep last good state", never "clear the index".
// - An unchanged fingerprint is the common case and costs one stat, nothing more.
// - A changed fingerprint must additionally pass the stability check: two
//   stats separated by the configured delay must agree exactly on size and
//   modification time. Disagreement means a writer is presumed mid-update
//   and the decision is deferred to a later call.
//
// The stability check is a best-effort heuristic: a writer that finishes
// between the stats, or stalls for exactly the delay, can slip through.
// Strengthening it (atomic rename on the writer side) is the file owner's
// concern, not this module's.
func (d *Detector) Changed(last Snapshot) bool {
	cur, err := Stat(d.path)
	if err != nil {
		return false
	}
	if cur.Equal(last) {
		return false
	}

	d.clk.Sleep(d.delay)

	again, err := Stat(d.path)
	if err != nil {
		return false
	}
	return cur.Equal(again)
}
