package sequence

import (
	"maps"
	"sync"
)

// Tracker is a shared counter keyed by an opaque definition id.
type Tracker struct {
	mu      sync.Mutex
	cursors map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{cursors: make(map[string]int)}
}

// NextIndex returns the current cursor for id (0 on first use) and advances
// it to (current + 1) mod total. A non-positive total returns 0 and leaves
// the cursor untouched.
func (t *Tracker) NextIndex(id string, total int) int {
	if total <= 0 {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.cursors[id]
	if cur >= total {
		// The step list shrank since the last call.
		cur %= total
	}
	t.cursors[id] = (cur + 1) % total
	return cur
}

// Reset forgets the cursor for id.
func (t *Tracker) Reset(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cursors, id)
}

// ResetAll forgets every cursor.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.cursors)
}

// Snapshot returns a copy of the current cursors.
func (t *Tracker) Snapshot() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.cursors)
}
