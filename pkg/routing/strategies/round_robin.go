package strategies

import "sync/atomic"

// Cursor is the shared round-robin position. Every call to Next returns a
// distinct value, so concurrent selections never observe the same cursor.
type Cursor struct {
	n atomic.Uint64
}

// Next returns the current position and advances the cursor.
func (c *Cursor) Next() uint64 {
	return c.n.Add(1) - 1
}

// rotate moves the element at cursor mod len to the front, keeping the
// cyclic order of the rest. The tail becomes the fallback chain.
func rotate(candidates []Candidate, cursor uint64) []Candidate {
	n := uint64(len(candidates))
	start := int(cursor % n)
	if start == 0 {
		return candidates
	}

	out := make([]Candidate, 0, len(candidates))
	out = append(out, candidates[start:]...)
	out = append(out, candidates[:start]...)
	return out
}
