package index

// Pool interns substitute-address strings so that the many rules sharing a
// common target (typically a null address like "0.0.0.0") store one logical
// copy. Handles are plain *string: equal inputs yield pointer-equal handles
// within one pool instance.
//
// A Pool is scoped to a single generation and populated once during a
// rebuild; it is never mutated afterwards, so reads need no locking. The
// pool and its index are replaced together as a pair, so a handle can never
// dangle.
type Pool struct {
	addrs map[string]*string
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{addrs: make(map[string]*string)}
}

// Intern returns the shared handle for address, creating it on first sight.
// Any string is valid input.
func (p *Pool) Intern(address string) *string {
	if h, ok := p.addrs[address]; ok {
		return h
	}
	h := &address
	p.addrs[address] = h
	return h
}

// Len returns the number of unique addresses interned.
func (p *Pool) Len() int { return len(p.addrs) }
