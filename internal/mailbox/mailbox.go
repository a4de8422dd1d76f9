// Package mailbox implements the single-slot hand-off cell between a
// connection's receive and send units.
//
// A Mailbox holds at most one unconsumed payload.  Publishing while a
// payload is pending overwrites it — deliberate latest-value-wins
// semantics, chosen over a queue so the hand-off stays O(1) and a slow
// consumer can never grow memory without bound.  The cost is that
// chunks may be dropped when the producer outruns the consumer; callers
// that care can watch the overwrite indication.
package mailbox

import (
	"sync"
	"time"
)

// Mailbox is a single-slot, overwrite-on-write data cell.  It is safe
// for one producer and one consumer running concurrently; that is the
// only usage the relay needs.
type Mailbox struct {
	mu      sync.Mutex
	buf     []byte // fixed backing store, capacity bounds message size
	n       int    // length of the pending payload
	hasData bool
	notify  chan struct{} // capacity 1: condition signal in channel form
}

// New returns a Mailbox whose payloads are truncated at capacity bytes.
func New(capacity int) *Mailbox {
	return &Mailbox{
		buf:    make([]byte, capacity),
		notify: make(chan struct{}, 1),
	}
}

// Capacity returns the maximum payload size in bytes.
func (m *Mailbox) Capacity() int { return len(m.buf) }

// Publish stores a copy of p, replacing any unconsumed payload, and
// wakes a waiting consumer.  Payloads longer than the mailbox capacity
// are truncated; each read on the producing side is one logical
// message, so oversized chunks lose their tail rather than splitting.
// It reports whether an unconsumed payload was discarded.
func (m *Mailbox) Publish(p []byte) (overwrote bool) {
	m.mu.Lock()
	m.n = copy(m.buf, p)
	overwrote = m.hasData
	m.hasData = true
	m.mu.Unlock()

	// Non-blocking signal: a pending wakeup already covers this publish.
	select {
	case m.notify <- struct{}{}:
	default:
	}
	return overwrote
}

// ConsumeWait blocks until a payload is available or timeout elapses.
// It returns a copy of the payload and true, or (nil, false) on
// expiry.  Expiry is the normal idle-poll outcome — callers use it to
// re-check their termination latch — never an error.
func (m *Mailbox) ConsumeWait(timeout time.Duration) ([]byte, bool) {
	deadline := time.Now().Add(timeout)
	for {
		m.mu.Lock()
		if m.hasData {
			out := make([]byte, m.n)
			copy(out, m.buf[:m.n])
			m.hasData = false
			m.mu.Unlock()
			return out, true
		}
		m.mu.Unlock()

		remain := time.Until(deadline)
		if remain <= 0 {
			return nil, false
		}
		timer := time.NewTimer(remain)
		select {
		case <-m.notify:
			timer.Stop()
			// Loop: the payload behind this signal may already have
			// been taken by an earlier iteration.
		case <-timer.C:
			// Deadline reached; one final presence check via the loop.
		}
	}
}

// TryConsume returns the pending payload without waiting, if any.
func (m *Mailbox) TryConsume() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasData {
		return nil, false
	}
	out := make([]byte, m.n)
	copy(out, m.buf[:m.n])
	m.hasData = false
	return out, true
}
