// Package timer provides a one-shot timer whose callback is guaranteed not to
// start once Cancel has returned.
package timer

import (
	"sync"
	"time"
)

type Timer struct {
	mu    sync.Mutex
	timer *time.Timer
	done  bool
}

// AfterFunc runs f in its own goroutine after d unless the timer is cancelled first.
func AfterFunc(d time.Duration, f func()) *Timer {
	t := &Timer{}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.done {
			t.mu.Unlock()
			return
		}
		t.done = true
		t.mu.Unlock()

		f()
	})

	return t
}

// Cancel stops the timer and reports whether it prevented the callback from
// running. It is safe to call on a nil Timer and more than once.
func (t *Timer) Cancel() bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return false
	}

	t.done = true
	t.timer.Stop()

	return true
}

// Pending reports whether the callback has neither run nor been cancelled.
func (t *Timer) Pending() bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return !t.done
}
