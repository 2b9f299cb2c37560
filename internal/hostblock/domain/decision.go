package domain

// Decision represents the outcome of evaluating a domain against the block
// index. Pure value type, no external dependencies.
type Decision struct {
	Blocked    bool   // true if the name is blocked by any rule
	Address    string // substitute address when blocked, "" otherwise
	MatchedKey string // index key that matched (exact domain or wildcard key)
}

// IsBlocked is a convenience accessor.
func (d Decision) IsBlocked() bool { return d.Blocked }

// EmptyDecision returns a not-blocked decision. This is also the answer for
// the initial state before any rule file has ever loaded (fail open).
func EmptyDecision() Decision { return Decision{Blocked: false} }
