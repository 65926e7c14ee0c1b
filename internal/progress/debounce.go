package progress

import (
	"sync"
	"time"

	"github.com/alexanderramin/coursetrack/internal/clock"
)

// DefaultDebounceWindow is the quiet period before a progress write is sent.
const DefaultDebounceWindow = 2000 * time.Millisecond

// Debouncer holds at most one pending value. Each Push replaces the pending
// value and restarts the window; when the window elapses with no further
// Push, fn receives the latest value. Calls to fn never overlap.
type Debouncer[T any] struct {
	clock clock.Clock
	delay time.Duration
	fn    func(T)

	fireMu sync.Mutex // held while fn runs

	mu      sync.Mutex
	timer   clock.Timer
	value   T
	pending bool
	gen     uint64
	stopped bool
}

// NewDebouncer returns a Debouncer delivering to fn after delay of quiet.
func NewDebouncer[T any](c clock.Clock, delay time.Duration, fn func(T)) *Debouncer[T] {
	if c == nil {
		c = clock.Real()
	}
	return &Debouncer[T]{clock: c, delay: delay, fn: fn}
}

// Push replaces the pending value and restarts the window. It reports false
// once the debouncer is stopped.
func (d *Debouncer[T]) Push(v T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	d.value = v
	d.pending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
	return true
}

// Pending reports whether a value is waiting for its window to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush delivers the pending value now, on the calling goroutine, and
// cancels its timer. It is a no-op when nothing is pending.
func (d *Debouncer[T]) Flush() {
	d.fireMu.Lock()
	defer d.fireMu.Unlock()

	v, ok := d.take(0, false)
	if ok {
		d.fn(v)
	}
}

// Stop discards any pending value and refuses further pushes.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.fireMu.Lock()
	defer d.fireMu.Unlock()

	v, ok := d.take(gen, true)
	if ok {
		d.fn(v)
	}
}

// take claims the pending value. With checkGen, a timer from a superseded
// Push claims nothing.
func (d *Debouncer[T]) take(gen uint64, checkGen bool) (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var zero T
	if !d.pending || (checkGen && gen != d.gen) {
		return zero, false
	}
	v := d.value
	d.value = zero
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return v, true
}

// Debounce wraps fn so that a burst of calls runs it once, delay after the
// last call in the burst.
func Debounce(fn func(), delay time.Duration) func() {
	d := NewDebouncer(clock.Real(), delay, func(struct{}) { fn() })
	return func() { d.Push(struct{}{}) }
}
