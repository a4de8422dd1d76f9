// Package session drives the two concurrent units of one relayed
// connection: a receive loop that publishes inbound chunks into a
// single-slot mailbox, and a send loop that drains the mailbox back to
// the peer.
//
// Neither unit ever blocks indefinitely.  Reads carry a short deadline
// and the mailbox wait is bounded, so both loops re-check the shared
// termination latch at least once per poll interval and stop within
// one interval of any terminal condition — peer close, transport
// error, or an external stop.
package session

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"gorelay/internal/errors"
	"gorelay/internal/mailbox"
	"gorelay/internal/metrics"
	"gorelay/util"
)

// Default bounded-wait intervals.  The receive poll bounds how fast a
// unit notices the latch; the send wait bounds the mailbox idle poll.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultSendWait     = 1 * time.Second
	DefaultReceiveYield = 100 * time.Millisecond
)

// Session owns one socket, one mailbox, and one termination latch, and
// runs the receive/send unit pair over them.  A Session occupies
// exactly one connection-table slot while active.
type Session struct {
	Slot int // connection table slot, for diagnostics

	// PollInterval bounds each socket read (default 500 ms).
	PollInterval time.Duration
	// SendWait bounds each mailbox consume (default 1 s).
	SendWait time.Duration
	// ReceiveYield is the pause after each published chunk, keeping a
	// fast-streaming peer from starving the send unit (default 100 ms).
	ReceiveYield time.Duration

	conn    net.Conn
	box     *mailbox.Mailbox
	state   State
	logger  *util.Logger
	metrics *metrics.Collector

	peer      string
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	onDone    func(*Session)
}

// New builds a Session for conn with a fresh mailbox of the given
// payload capacity.  onDone, if non-nil, runs after both units have
// stopped and the socket is closed — the table uses it to reclaim the
// slot, which is only safe at that point.
func New(slot int, conn net.Conn, capacity int, logger *util.Logger, m *metrics.Collector, onDone func(*Session)) *Session {
	return &Session{
		Slot:         slot,
		PollInterval: DefaultPollInterval,
		SendWait:     DefaultSendWait,
		ReceiveYield: DefaultReceiveYield,
		conn:         conn,
		box:          mailbox.New(capacity),
		logger:       logger.With(fmt.Sprintf("session %d", slot)),
		metrics:      m,
		done:         make(chan struct{}),
		onDone:       onDone,
	}
}

// Start launches the receive and send units plus a watcher that joins
// both, closes the socket, and reclaims the slot.  It returns
// immediately.
func (s *Session) Start() {
	s.peer = s.conn.RemoteAddr().String()
	s.metrics.SessionOpened()

	s.wg.Add(2)
	go s.receiveLoop()
	go s.sendLoop()

	go func() {
		s.wg.Wait() // explicit join: no slot reuse while a unit lives
		s.closeConn()
		s.state.MarkClosed()
		s.metrics.SessionClosed()
		if s.onDone != nil {
			s.onDone(s)
		}
		close(s.done)
	}()
}

// Stop latches the session into termination.  Both units observe the
// latch within one poll interval; Stop does not wait for them.
func (s *Session) Stop() {
	if s.state.SignalExit() {
		s.logger.Verbose("stop requested")
	}
}

// Wait blocks until the session is fully closed.
func (s *Session) Wait() {
	<-s.done
}

// Phase returns the session's lifecycle stage.
func (s *Session) Phase() Phase { return s.state.Phase() }

// Peer returns the remote address, for diagnostics.
func (s *Session) Peer() string { return s.peer }

func (s *Session) closeConn() {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
}

// ── Receive unit ─────────────────────────────────────────────────────

// receiveLoop polls the socket with a bounded deadline, publishing each
// chunk into the mailbox.  One successful read is one logical message;
// chunks beyond the mailbox capacity are truncated rather than
// reassembled.
func (s *Session) receiveLoop() {
	defer s.wg.Done()

	var buf []byte
	if s.box.Capacity() <= util.DefaultBufSize {
		p := util.GetBuf()
		defer util.PutBuf(p)
		buf = (*p)[:s.box.Capacity()]
	} else {
		buf = make([]byte, s.box.Capacity())
	}

	for !s.state.Exiting() {
		s.conn.SetReadDeadline(time.Now().Add(s.PollInterval)) //nolint:errcheck
		n, err := s.conn.Read(buf)

		if n > 0 {
			if s.box.Publish(buf[:n]) {
				s.metrics.MessageDropped()
			}
			s.metrics.BytesReceived(int64(n))
			s.logger.Info("received %d bytes from %s: %q", n, s.peer, buf[:n])
			if s.ReceiveYield > 0 {
				time.Sleep(s.ReceiveYield)
			}
			continue
		}
		if err == nil {
			continue
		}

		switch {
		case errors.IsTimeout(err):
			// Idle poll expiry; re-check the latch and go again.
			continue
		case errors.Is(err, io.EOF):
			// Orderly peer close: expected termination, not an error.
			s.logger.Verbose("peer %s closed the connection", s.peer)
		case errors.Is(err, net.ErrClosed):
			// Socket torn down locally during shutdown.
		default:
			s.metrics.RecordError(err.Error())
			s.logger.Error("%v", errors.WrapSession(s.Slot, "read", s.peer, err))
		}
		break
	}

	s.logger.Verbose("receive unit stopped, peer %s", s.peer)
	s.state.SignalExit()
}

// ── Send unit ────────────────────────────────────────────────────────

// sendLoop drains the mailbox back to the peer.  A consume timeout is
// the expected steady state when the peer is idle; a write failure is
// session-fatal exactly like a read failure.
func (s *Session) sendLoop() {
	defer s.wg.Done()

	for !s.state.Exiting() {
		data, ok := s.box.ConsumeWait(s.SendWait)
		if !ok {
			s.logger.Debug("idle, no data for %v", s.SendWait)
			continue
		}

		s.conn.SetWriteDeadline(time.Now().Add(s.SendWait)) //nolint:errcheck
		if _, err := s.conn.Write(data); err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.metrics.RecordError(err.Error())
				s.logger.Error("%v", errors.WrapSession(s.Slot, "write", s.peer, err))
			}
			break
		}
		s.metrics.BytesSent(int64(len(data)))
	}

	s.logger.Verbose("send unit stopped, peer %s", s.peer)
	s.state.SignalExit()
}
