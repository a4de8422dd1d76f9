package relay

import (
	"context"
	"net"
	"testing"
	"time"

	"gorelay/config"
	"gorelay/util"
)

// testServerConfig returns a listen-mode config with short poll bounds
// so tests finish quickly.
func testServerConfig(t *testing.T) *config.Config {
	t.Helper()
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.New()
	cfg.Listen = true
	cfg.Port = port
	cfg.PollInterval = 50 * time.Millisecond
	cfg.SendWait = 50 * time.Millisecond
	cfg.ReceiveYield = 0
	return cfg
}

func startServer(t *testing.T, ctx context.Context, cfg *config.Config) *Server {
	t.Helper()
	srv := NewServer(cfg, util.NewLogger(0), nil)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	// Wait for the acceptor to come up.  A successful dial only proves
	// the listen backlog exists; the probe must complete a full echo
	// round trip so we know the acceptor really processed it before we
	// close it and wait for its slot to come back.  Otherwise a
	// capacity-1 test could race the probe's own session for the only
	// slot.
	addr := util.FormatAddr("127.0.0.1", cfg.Port)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			echoed := echoOnce(conn)
			conn.Close()
			if echoed {
				waitFor(t, 2*time.Second, func() bool { return srv.Table().Len() == 0 })
				return srv
			}
		}
		select {
		case err := <-errCh:
			t.Fatalf("server exited early: %v", err)
		default:
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server did not start listening")
	return nil
}

// echoOnce reports whether conn relays a single byte back.
func echoOnce(conn net.Conn) bool {
	if _, err := conn.Write([]byte("?")); err != nil {
		return false
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, err := conn.Read(make([]byte, 1))
	return err == nil
}

// A connected client's chunk comes back within one poll interval.
func TestServerEcho(t *testing.T) {
	cfg := testServerConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	startServer(t, ctx, cfg)

	conn, err := net.Dial("tcp", util.FormatAddr("127.0.0.1", cfg.Port))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read echo: %v", err)
	}
	if got := string(buf[:n]); got != "ping" {
		t.Errorf("echo = %q, want %q", got, "ping")
	}
}

// A server at capacity must explicitly close the extra connection, not
// silently hold it.
func TestServerCapacityReject(t *testing.T) {
	cfg := testServerConfig(t)
	cfg.MaxClients = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := startServer(t, ctx, cfg)

	addr := util.FormatAddr("127.0.0.1", cfg.Port)

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	// Make sure the first connection holds the only slot.
	waitFor(t, 2*time.Second, func() bool { return srv.Table().Len() == 1 })

	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	// The rejected connection is closed by the server: the next read
	// sees EOF rather than hanging.
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := second.Read(make([]byte, 1)); err == nil {
		t.Error("read on rejected connection succeeded, want closed")
	}
	if srv.Table().Len() != 1 {
		t.Errorf("table Len = %d, want 1 (rejected conn must not occupy a slot)", srv.Table().Len())
	}
}

// An abruptly closed peer frees its slot within the poll bounds, and
// the slot is reusable.
func TestServerSlotReuse(t *testing.T) {
	cfg := testServerConfig(t)
	cfg.MaxClients = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := startServer(t, ctx, cfg)

	addr := util.FormatAddr("127.0.0.1", cfg.Port)

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool { return srv.Table().Len() == 1 })

	first.Close() // simulate a crashed client

	// Receive unit observes the close within one poll cycle; the
	// watcher joins both units and reclaims the slot.
	waitFor(t, 2*time.Second, func() bool { return srv.Table().Len() == 0 })

	// The reclaimed slot serves a new client.
	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	if _, err := second.Write([]byte("back")); err != nil {
		t.Fatal(err)
	}
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := second.Read(buf)
	if err != nil {
		t.Fatalf("read echo on reused slot: %v", err)
	}
	if got := string(buf[:n]); got != "back" {
		t.Errorf("echo = %q, want %q", got, "back")
	}
}

// Context cancellation drains every live session before Run returns.
func TestServerDrainOnCancel(t *testing.T) {
	cfg := testServerConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(cfg, util.NewLogger(0), nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	addr := util.FormatAddr("127.0.0.1", cfg.Port)
	var conn net.Conn
	var err error
	waitFor(t, 2*time.Second, func() bool {
		conn, err = net.Dial("tcp", addr)
		return err == nil
	})
	defer conn.Close()
	waitFor(t, 2*time.Second, func() bool { return srv.Table().Len() == 1 })

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned %v, want nil on graceful shutdown", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down in time")
	}
	if srv.Table().Len() != 0 {
		t.Errorf("table Len = %d after drain, want 0", srv.Table().Len())
	}
}

// An accept failure that is not a shutdown still drains live sessions
// before the error is reported.
func TestServerDrainOnAcceptError(t *testing.T) {
	cfg := testServerConfig(t)
	srv := NewServer(cfg, util.NewLogger(0), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitFor(t, 2*time.Second, func() bool { return srv.Table().Len() == 1 })

	// Kill the listener without cancelling the context: the accept
	// error path must drain, not abandon, the live session.
	ln.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("serve returned nil, want an accept error")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after listener failure")
	}
	if srv.Table().Len() != 0 {
		t.Errorf("table Len = %d after accept failure, want 0 (drained)", srv.Table().Len())
	}
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
