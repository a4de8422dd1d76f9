package util

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// ResolveAddr builds a host:port string, validating that the host is a
// numeric IP when noDNS is true.
func ResolveAddr(host string, port int, noDNS bool) (string, error) {
	if noDNS {
		if net.ParseIP(host) == nil {
			return "", fmt.Errorf("cannot parse %q as an IP address (DNS disabled with -n)", host)
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// ConfigureKeepAlive enables TCP keep-alive probing on conn so that a
// silently vanished peer is eventually detected by the kernel rather
// than holding a table slot forever.  Non-TCP connections (test pipes)
// are left untouched.
func ConfigureKeepAlive(conn net.Conn, period time.Duration) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tc.SetKeepAlive(true); err != nil {
		return fmt.Errorf("enable keep-alive: %w", err)
	}
	if period > 0 {
		if err := tc.SetKeepAlivePeriod(period); err != nil {
			return fmt.Errorf("keep-alive period: %w", err)
		}
	}
	return nil
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
