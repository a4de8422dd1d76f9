// Package table implements the fixed-capacity connection table shared
// by the acceptor and the per-connection units.
//
// Slots are handed out from a free-index stack, so acquire and release
// are O(1) regardless of capacity.  Every slot operation happens under
// one table lock: the acceptor writes on accept, a session's watcher
// clears its own slot on completion, and the two must never interleave
// on the same index.
package table

import (
	"sync"

	"gorelay/internal/errors"
	"gorelay/internal/session"
)

// Table is a fixed-capacity collection of live sessions.
type Table struct {
	mu    sync.Mutex
	slots []*session.Session
	free  []int // stack of available slot indices
}

// New returns a Table with the given capacity (maximum concurrent
// sessions).
func New(capacity int) *Table {
	t := &Table{
		slots: make([]*session.Session, capacity),
		free:  make([]int, 0, capacity),
	}
	// Push indices in reverse so the lowest index is allocated first.
	for i := capacity - 1; i >= 0; i-- {
		t.free = append(t.free, i)
	}
	return t
}

// Capacity returns the maximum number of concurrent sessions.
func (t *Table) Capacity() int { return len(t.slots) }

// Acquire reserves a free slot and returns its index, or ErrTableFull
// when every slot is occupied.  The caller must follow up with Attach
// or Release.
func (t *Table) Acquire() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.free) == 0 {
		return 0, errors.ErrTableFull
	}
	idx := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	return idx, nil
}

// Attach binds a session to a previously acquired slot.
func (t *Table) Attach(idx int, s *session.Session) {
	t.mu.Lock()
	t.slots[idx] = s
	t.mu.Unlock()
}

// Release clears a slot and returns its index to the free stack.  It
// must be called exactly once per Acquire, and only after the slot's
// session is fully closed — the session watcher guarantees both units
// have been joined first.
func (t *Table) Release(idx int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[idx] = nil
	t.free = append(t.free, idx)
}

// Len returns the number of occupied slots.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots) - len(t.free)
}

// Each calls fn for every attached session.  The snapshot is taken
// under the lock; fn runs outside it so it may block (e.g. Wait).
func (t *Table) Each(fn func(*session.Session)) {
	t.mu.Lock()
	live := make([]*session.Session, 0, len(t.slots))
	for _, s := range t.slots {
		if s != nil {
			live = append(live, s)
		}
	}
	t.mu.Unlock()

	for _, s := range live {
		fn(s)
	}
}
