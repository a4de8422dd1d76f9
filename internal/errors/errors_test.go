package errors

import (
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
)

func TestNetworkError(t *testing.T) {
	inner := New("connection refused")
	err := Wrap("dial", "127.0.0.1:9000", inner)

	if err.Op != "dial" || err.Addr != "127.0.0.1:9000" {
		t.Errorf("unexpected fields: %+v", err)
	}
	if !Is(err, inner) {
		t.Error("Wrap should preserve the error chain")
	}
	if err.Retryable {
		t.Error("plain errors should not classify as retryable")
	}
}

func TestSessionErrorMessage(t *testing.T) {
	err := WrapSession(3, "write", "10.0.0.7:51234", New("broken pipe"))
	want := "session 3: write 10.0.0.7:51234: broken pipe"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	var se *SessionError
	if !As(fmt.Errorf("send unit: %w", err), &se) {
		t.Error("SessionError should survive wrapping")
	}
	if se.Slot != 3 {
		t.Errorf("Slot = %d, want 3", se.Slot)
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "max-clients",
		Value:   0,
		Message: "must be positive",
		Hint:    "try --max-clients 30",
	}
	got := err.Error()
	for _, want := range []string{"--max-clients", "must be positive", "try --max-clients 30"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
}

func TestIsTimeout(t *testing.T) {
	if IsTimeout(nil) {
		t.Error("nil is not a timeout")
	}
	if IsTimeout(New("boom")) {
		t.Error("plain error is not a timeout")
	}
	opErr := &net.OpError{Op: "read", Err: os.ErrDeadlineExceeded}
	if !IsTimeout(opErr) {
		t.Error("deadline expiry should classify as timeout")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	ne := &NetworkError{Op: "dial", Addr: "x", Err: New("x"), Retryable: true}
	if !IsRetryable(fmt.Errorf("outer: %w", ne)) {
		t.Error("wrapped retryable NetworkError should classify as retryable")
	}
}
