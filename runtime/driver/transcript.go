package driver

import (
	"io"
	"strings"
	"sync"
	"time"
)

// transcript accumulates pty output in a single growing buffer and lets
// callers poll for a substring appearing in it, with a small condition
// variable to avoid a busy loop.
type transcript struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  strings.Builder
	src  io.Reader
	done bool
}

func newTranscript(src io.Reader) *transcript {
	t := &transcript{src: src}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// pump reads from src until EOF or error, appending to buf and waking
// any waiters after each read. Runs on its own goroutine; its effect is
// observed synchronously by awaitSubstring.
func (t *transcript) pump() {
	chunk := make([]byte, 4096)
	for {
		n, err := t.src.Read(chunk)
		if n > 0 {
			t.mu.Lock()
			t.buf.Write(chunk[:n])
			t.cond.Broadcast()
			t.mu.Unlock()
		}
		if err != nil {
			t.mu.Lock()
			t.done = true
			t.cond.Broadcast()
			t.mu.Unlock()
			return
		}
	}
}

// awaitSubstring blocks until the transcript contains text or timeout
// elapses, returning false on timeout.
func (t *transcript) awaitSubstring(text string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		if strings.Contains(t.buf.String(), text) {
			return true
		}
		if t.done {
			return strings.Contains(t.buf.String(), text)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		timer := time.AfterFunc(remaining, func() {
			t.mu.Lock()
			t.cond.Broadcast()
			t.mu.Unlock()
		})
		t.cond.Wait()
		timer.Stop()
		if time.Now().After(deadline) {
			if strings.Contains(t.buf.String(), text) {
				return true
			}
			return false
		}
	}
}

func (t *transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
