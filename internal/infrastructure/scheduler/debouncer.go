package scheduler

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls into one delayed invocation with the latest value.
// At most one invocation is pending at any time; a new Schedule replaces it.
// The zero value is ready to use.
type Debouncer[T any] struct {
	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	closed bool
}

// NewDebouncer creates a new debouncer
func NewDebouncer[T any]() *Debouncer[T] {
	return &Debouncer[T]{}
}

// Schedule cancels any pending invocation and arranges for fn(value) to run once delay
// has passed without another Schedule. It reports false if the debouncer is closed.
func (d *Debouncer[T]) Schedule(value T, delay time.Duration, fn func(T)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	d.stopLocked()

	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		// A timer that fired while a newer Schedule or Cancel held the lock is stale
		if d.gen != gen || d.closed {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()

		fn(value)
	})
	return true
}

// Cancel drops the pending invocation, if any, and reports whether there was one
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stopLocked()
}

// Close cancels the pending invocation and rejects further schedules
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.closed = true
}

// Pending reports whether an invocation is waiting to fire
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.timer != nil
}

func (d *Debouncer[T]) stopLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}
