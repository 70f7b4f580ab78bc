package infer

import "github.com/kinetic-data/repcoach/internal/pose"

// Cursor tracks the last result id a consumer has processed. Each consumer
// keeps its own cursor so a slow consumer never hides results from a fast
// one, and no consumer ever processes the same result twice.
type Cursor struct {
	lastID uint64
}

// Fresh reports whether r is newer than anything this cursor has seen, and
// advances the cursor when it is.
func (c *Cursor) Fresh(r *pose.Result) bool {
	if r == nil || r.ResultID <= c.lastID {
		return false
	}
	c.lastID = r.ResultID
	return true
}

// Reset forgets the cursor position, so the next result is fresh again.
func (c *Cursor) Reset() { c.lastID = 0 }
