package relay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"gorelay/config"
	"gorelay/internal/errors"
	"gorelay/internal/metrics"
	"gorelay/internal/retry"
	"gorelay/internal/session"
	"gorelay/util"
)

// exitToken is the one console input recognised as a control command.
// It ends the session locally and is never transmitted to the peer.
const exitToken = "exit"

// dialTimeout bounds a single connection attempt.
const dialTimeout = 10 * time.Second

// Client pairs a console-input send loop with a socket receive loop.
// Console input is already serialised, so lines are written straight to
// the socket — no mailbox hand-off is needed on this side.
type Client struct {
	cfg     *config.Config
	logger  *util.Logger
	metrics *metrics.Collector

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer
}

// NewClient returns a Client for the configured server address.
func NewClient(cfg *config.Config, logger *util.Logger, m *metrics.Collector) *Client {
	return &Client{cfg: cfg, logger: logger, metrics: m}
}

func (c *Client) stdin() io.Reader {
	if c.Stdin != nil {
		return c.Stdin
	}
	return os.Stdin
}

func (c *Client) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

// Run connects, relays until the session ends, then offers a reconnect.
// Dial failure is fatal unless auto-reconnect is enabled, in which case
// it is retried with exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	// One console reader feeds both message input and the reconnect
	// prompt; two readers on the same stream would race.
	lines := make(chan string)
	go c.readLines(lines)

	for {
		conn, err := c.dial(ctx)
		if err != nil {
			return err
		}
		c.logger.Info("connected to %s", conn.RemoteAddr())

		c.runSession(ctx, conn, lines)
		conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		if c.cfg.AutoReconnect {
			c.logger.Info("reconnecting")
			c.metrics.Reconnect()
			continue
		}
		if !c.askReconnect(lines) {
			return nil
		}
		c.metrics.Reconnect()
	}
}

// dial opens the TCP connection, with backoff when auto-reconnect is
// enabled.
func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	addr, err := util.ResolveAddr(c.cfg.Host, c.cfg.Port, c.cfg.NoDNS)
	if err != nil {
		return nil, err
	}

	d := net.Dialer{Timeout: dialTimeout}

	if !c.cfg.AutoReconnect {
		conn, derr := d.DialContext(ctx, "tcp", addr)
		if derr != nil {
			return nil, errors.Wrap("dial", addr, derr)
		}
		return conn, nil
	}

	var conn net.Conn
	b := retry.DefaultBackoff()
	err = b.Do(ctx, func(attempt int) error {
		var derr error
		conn, derr = d.DialContext(ctx, "tcp", addr)
		if derr != nil {
			c.logger.Warn("dial %s attempt %d: %v", addr, attempt, derr)
		}
		return derr
	})
	if err != nil {
		return nil, errors.Wrap("dial", addr, err)
	}
	return conn, nil
}

// runSession drives one connected session: both loops share a fresh
// termination latch and are joined before the socket is closed.
func (c *Client) runSession(ctx context.Context, conn net.Conn, lines <-chan string) {
	var state session.State
	var wg sync.WaitGroup

	wg.Add(2)
	go c.sendLoop(ctx, conn, lines, &state, &wg)
	go c.receiveLoop(conn, &state, &wg)
	wg.Wait()
}

// sendLoop forwards console lines to the server.  The bounded tick is
// what lets it notice the latch while the operator is silent.
func (c *Client) sendLoop(ctx context.Context, conn net.Conn, lines <-chan string, state *session.State, wg *sync.WaitGroup) {
	defer wg.Done()
	defer state.SignalExit()

	tick := time.NewTicker(c.cfg.InputPoll)
	defer tick.Stop()

	for {
		if state.Exiting() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			// Input poll expired; loop re-checks the latch.
		case line, ok := <-lines:
			if !ok {
				// Console closed: treat like a local exit.
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if line == exitToken {
				c.logger.Verbose("exit requested, closing session")
				return
			}
			if line == "" {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(c.cfg.SendWait)) //nolint:errcheck
			if _, err := conn.Write([]byte(line)); err != nil {
				c.metrics.RecordError(err.Error())
				c.logger.Error("%v", errors.Wrap("write", conn.RemoteAddr().String(), err))
				return
			}
			c.metrics.BytesSent(int64(len(line)))
		}
	}
}

// receiveLoop prints server messages.  Unlike the server — which treats
// peer silence as idle — prolonged silence here is presumed a dead
// connection once IdleTimeout elapses.
func (c *Client) receiveLoop(conn net.Conn, state *session.State, wg *sync.WaitGroup) {
	defer wg.Done()
	defer state.SignalExit()

	buf := make([]byte, c.cfg.BufferSize)
	last := time.Now()

	for !state.Exiting() {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PollInterval)) //nolint:errcheck
		n, err := conn.Read(buf)

		if n > 0 {
			last = time.Now()
			c.metrics.BytesReceived(int64(n))
			fmt.Fprintf(c.stdout(), "Server: %s\n", buf[:n])
			continue
		}
		if err == nil {
			continue
		}

		switch {
		case errors.IsTimeout(err):
			if c.cfg.IdleTimeout > 0 && time.Since(last) >= c.cfg.IdleTimeout {
				fmt.Fprintf(c.stdout(), "No response from server for %v, disconnecting\n", c.cfg.IdleTimeout)
				c.metrics.RecordError(errors.ErrIdleTimeout.Error())
				c.logger.Warn("%v", errors.ErrIdleTimeout)
				return
			}
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(c.stdout(), "Server disconnected.")
			return
		case errors.Is(err, net.ErrClosed):
			return
		default:
			c.metrics.RecordError(err.Error())
			c.logger.Error("%v", errors.Wrap("read", conn.RemoteAddr().String(), err))
			return
		}
	}
}

// readLines feeds console lines into the channel until EOF.
func (c *Client) readLines(lines chan<- string) {
	sc := bufio.NewScanner(c.stdin())
	for sc.Scan() {
		lines <- sc.Text()
	}
	close(lines)
}

// askReconnect offers a fresh session.  Piped (non-terminal) stdin
// never prompts — the process just ends with the session.
func (c *Client) askReconnect(lines <-chan string) bool {
	if f, ok := c.stdin().(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false
	}
	fmt.Fprint(c.stdout(), "Reconnect? (y/n): ")
	answer, ok := <-lines
	if !ok {
		return false
	}
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y"
}
