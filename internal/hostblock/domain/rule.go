package domain

import (
	"fmt"
	"strings"
)

// Wildcard is the key prefix that marks a rule as matching the key itself
// and every sub-domain beneath it (".tracker.com" matches "tracker.com",
// "ads.tracker.com", "a.b.tracker.com").
const Wildcard = "."

// BlockRule is one parsed rule-file line: a match key and the substitute
// address callers should receive instead of a real resolution.
//
// Notes:
// - Key is expected to be lowercase-normalized by the parser.
// - A Key beginning with "." is a wildcard rule; anything else is exact-only.
// - Address is the literal substitute string; interning into shared handles
//   happens later, at index build time, not here.
type BlockRule struct {
	Key     string // lowercase match target, e.g. "tracker.com" or ".tracker.com"
	Address string // substitute address, e.g. "0.0.0.0"
}

// NewBlockRule constructs a BlockRule and validates its fields.
func NewBlockRule(key, address string) (BlockRule, error) {
	r := BlockRule{
		Key:     strings.TrimSpace(key),
		Address: strings.TrimSpace(address),
	}
	if err := r.Validate(); err != nil {
		return BlockRule{}, err
	}
	return r, nil
}

// Validate checks the BlockRule for required fields.
func (r BlockRule) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("rule key must not be empty")
	}
	if r.Address == "" {
		return fmt.Errorf("rule address must not be empty")
	}
	return nil
}

// IsWildcard returns true when the rule key matches sub-domains as well.
func (r BlockRule) IsWildcard() bool { return strings.HasPrefix(r.Key, Wildcard) }
