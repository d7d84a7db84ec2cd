// Package debounce collapses bursts of calls into a single delayed call that
// carries the most recent payload.
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Handle identifies one scheduled call. It stays valid until the call fires,
// is cancelled, or is superseded by another Schedule.
type Handle struct {
	delay time.Duration
}

// Debouncer runs fn with the latest payload once a quiet period has elapsed
// without further calls. At most one call is pending at a time.
type Debouncer[T any] struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	fn      func(T)
	timer   clockwork.Timer
	pending *Handle
	payload T
	gen     uint64
}

// New returns a debouncer that calls fn on clock. A nil clock means the real
// clock.
func New[T any](clock clockwork.Clock, fn func(T)) *Debouncer[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer[T]{clock: clock, fn: fn}
}

// Schedule arms a call with payload after delay. A pending call is dropped
// and its handle becomes stale.
func (d *Debouncer[T]) Schedule(payload T, delay time.Duration) *Handle {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	h := &Handle{delay: delay}
	d.arm(h, payload)
	return h
}

// Reschedule replaces the payload of h and restarts its quiet period. It
// reports false when h is stale, in which case nothing is scheduled.
func (d *Debouncer[T]) Reschedule(h *Handle, payload T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h == nil || d.pending != h {
		return false
	}
	d.stopLocked()
	d.arm(h, payload)
	return true
}

// Cancel drops the pending call, if any, and reports whether there was one.
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	had := d.pending != nil
	d.stopLocked()
	return had
}

// Flush runs the pending call right away on the calling goroutine. It
// reports whether there was one.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.pending == nil {
		d.mu.Unlock()
		return false
	}
	payload := d.payload
	d.stopLocked()
	d.mu.Unlock()

	d.fn(payload)
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// arm must be called with d.mu held.
func (d *Debouncer[T]) arm(h *Handle, payload T) {
	d.gen++
	gen := d.gen
	d.pending = h
	d.payload = payload
	d.timer = d.clock.AfterFunc(h.delay, func() { d.expire(gen) })
}

func (d *Debouncer[T]) expire(gen uint64) {
	d.mu.Lock()
	// a stopped timer may still fire once; only the current arming counts
	if d.pending == nil || d.gen != gen {
		d.mu.Unlock()
		return
	}
	payload := d.payload
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	d.fn(payload)
}

// stopLocked must be called with d.mu held.
func (d *Debouncer[T]) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.pending = nil
	d.payload = zero
}
