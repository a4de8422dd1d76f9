package relay

import (
	"context"
	"fmt"
	"net"

	"gorelay/config"
	"gorelay/internal/errors"
	"gorelay/internal/metrics"
	"gorelay/internal/session"
	"gorelay/internal/table"
	"gorelay/util"
)

// Server accepts connections up to the table capacity and runs a
// session per connection.
type Server struct {
	cfg     *config.Config
	logger  *util.Logger
	metrics *metrics.Collector
	table   *table.Table
}

// NewServer builds a Server with a fresh connection table.
func NewServer(cfg *config.Config, logger *util.Logger, m *metrics.Collector) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		table:   table.New(cfg.MaxClients),
	}
}

// Table exposes the connection table for tests and diagnostics.
func (s *Server) Table() *table.Table { return s.table }

// Run listens and accepts until the context is cancelled.  Bind or
// listen failure is fatal; everything after that is contained per
// session.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap("listen", addr, err)
	}
	defer ln.Close()

	s.logger.Info("listening on %s (capacity %d)", ln.Addr(), s.table.Capacity())

	// Shut the listener down when the context expires.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	return s.serve(ctx, ln)
}

// serve accepts until the listener dies.  Live sessions are drained on
// every exit path, so Run never returns with units still running, even
// when the accept loop itself failed.
func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	defer s.drain()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap("accept", ln.Addr().String(), err)
		}
		s.accept(conn)
	}
}

// accept places the connection into a free table slot and starts its
// unit pair.  A full table rejects explicitly: the connection is
// logged and closed rather than silently dropped.
func (s *Server) accept(conn net.Conn) {
	peer := conn.RemoteAddr()
	s.logger.Info("new connection from %s", peer)

	if s.cfg.KeepAlive {
		if err := util.ConfigureKeepAlive(conn, s.cfg.KeepAlivePeriod); err != nil {
			s.logger.Warn("keep-alive for %s: %v", peer, err)
		}
	}

	idx, err := s.table.Acquire()
	if err != nil {
		s.metrics.RecordError(err.Error())
		s.logger.Warn("rejecting %s: %v", peer, err)
		conn.Close()
		return
	}

	sess := session.New(idx, conn, s.cfg.BufferSize, s.logger, s.metrics,
		func(done *session.Session) {
			s.table.Release(done.Slot)
			s.logger.Verbose("slot %d reclaimed (peer %s)", done.Slot, done.Peer())
		})
	sess.PollInterval = s.cfg.PollInterval
	sess.SendWait = s.cfg.SendWait
	sess.ReceiveYield = s.cfg.ReceiveYield

	s.table.Attach(idx, sess)
	s.logger.Verbose("%s added to table at slot %d", peer, idx)
	sess.Start()
}

// drain stops every live session and waits for all of them to close.
func (s *Server) drain() {
	n := s.table.Len()
	if n > 0 {
		s.logger.Info("shutting down, draining %d session(s)", n)
	}
	s.table.Each(func(sess *session.Session) { sess.Stop() })
	s.table.Each(func(sess *session.Session) { sess.Wait() })
}
