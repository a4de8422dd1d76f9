package session

import "sync/atomic"

// Phase is a session's lifecycle stage.  Transitions are one-way:
// Active → Terminating → Closed.
type Phase int32

const (
	// PhaseActive means both units are running normally.
	PhaseActive Phase = iota
	// PhaseTerminating means a terminal condition was observed; both
	// units stop within one poll interval.
	PhaseTerminating
	// PhaseClosed means both units have stopped and the socket is
	// released.  Only now may the table slot be reused.
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseTerminating:
		return "terminating"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// State is the termination latch shared by a session's two units.
// It replaces scattered bool+mutex pairs with a single atomic phase
// value; once advanced it never moves backwards.
type State struct {
	v atomic.Int32
}

// SignalExit latches the session into PhaseTerminating.  It is
// idempotent and reports whether this call performed the transition
// (false if another unit got there first or the session is closed).
func (s *State) SignalExit() bool {
	return s.v.CompareAndSwap(int32(PhaseActive), int32(PhaseTerminating))
}

// Exiting reports whether the session has started terminating.  Both
// units call this every polling cycle.
func (s *State) Exiting() bool {
	return Phase(s.v.Load()) >= PhaseTerminating
}

// MarkClosed advances Terminating → Closed.  Calling it before
// SignalExit is a programming error and is ignored, preserving
// monotonicity.
func (s *State) MarkClosed() bool {
	return s.v.CompareAndSwap(int32(PhaseTerminating), int32(PhaseClosed))
}

// Phase returns the current lifecycle stage.
func (s *State) Phase() Phase {
	return Phase(s.v.Load())
}
