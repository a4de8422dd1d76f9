package mailbox

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestPublishConsume(t *testing.T) {
	m := New(64)

	if m.Publish([]byte("ping")) {
		t.Error("first publish should not overwrite")
	}

	got, ok := m.ConsumeWait(time.Second)
	if !ok {
		t.Fatal("expected payload, got timeout")
	}
	if !bytes.Equal(got, []byte("ping")) {
		t.Errorf("payload = %q, want %q", got, "ping")
	}
}

// Publishing v1 then v2 before any consume must yield v2 only; v1 is
// never observed.
func TestOverwrite(t *testing.T) {
	m := New(64)

	if m.Publish([]byte("v1")) {
		t.Error("first publish should not overwrite")
	}
	if !m.Publish([]byte("v2")) {
		t.Error("second publish should report an overwrite")
	}

	got, ok := m.ConsumeWait(time.Second)
	if !ok {
		t.Fatal("expected payload")
	}
	if string(got) != "v2" {
		t.Errorf("payload = %q, want %q (last write wins)", got, "v2")
	}

	// The slot must now be empty again.
	if _, ok := m.TryConsume(); ok {
		t.Error("slot should be empty after consume")
	}
}

func TestConsumeWaitTimeout(t *testing.T) {
	m := New(16)

	const timeout = 50 * time.Millisecond
	start := time.Now()
	got, ok := m.ConsumeWait(timeout)
	elapsed := time.Since(start)

	if ok || got != nil {
		t.Errorf("expected timeout, got payload %q", got)
	}
	if elapsed < timeout {
		t.Errorf("returned after %v, want at least %v", elapsed, timeout)
	}
}

func TestConsumeWaitWakesOnPublish(t *testing.T) {
	m := New(16)

	go func() {
		time.Sleep(20 * time.Millisecond)
		m.Publish([]byte("late"))
	}()

	start := time.Now()
	got, ok := m.ConsumeWait(2 * time.Second)
	if !ok {
		t.Fatal("expected payload before the full timeout")
	}
	if string(got) != "late" {
		t.Errorf("payload = %q, want %q", got, "late")
	}
	if time.Since(start) > time.Second {
		t.Error("consumer should wake on signal, not deadline")
	}
}

func TestTruncation(t *testing.T) {
	m := New(4)
	m.Publish([]byte("abcdefgh"))

	got, ok := m.ConsumeWait(time.Second)
	if !ok {
		t.Fatal("expected payload")
	}
	if string(got) != "abcd" {
		t.Errorf("payload = %q, want truncated %q", got, "abcd")
	}
}

// A producer hammering the slot while one consumer drains it must never
// corrupt a payload: every consumed value is exactly one published
// value, intermediate drops are allowed.
func TestConcurrentProducerConsumer(t *testing.T) {
	m := New(8)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			m.Publish([]byte("payload"))
		}
		close(done)
	}()

	for {
		got, ok := m.ConsumeWait(10 * time.Millisecond)
		if ok && string(got) != "payload" {
			t.Errorf("corrupted payload %q", got)
		}
		if !ok {
			select {
			case <-done:
				wg.Wait()
				return
			default:
			}
		}
	}
}
