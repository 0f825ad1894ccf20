// Package watchdog implements inactivity-triggered auto-lock. It is a
// debounced single-timer design: every qualifying interaction signal cancels
// the pending timeout and schedules a new one, so only the most recent
// deadline ever matters and a stale timer can never fire after a later reset.
package watchdog

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Signal is a user-interaction signal type that counts as activity.
type Signal string

const (
	SignalPointer Signal = "pointer"
	SignalKey     Signal = "key"
	SignalScroll  Signal = "scroll"
	SignalTouch   Signal = "touch"

	// DefaultTimeout applies when no override is given.
	DefaultTimeout = 15 * time.Minute
)

func (s Signal) valid() bool {
	switch s {
	case SignalPointer, SignalKey, SignalScroll, SignalTouch:
		return true
	}
	return false
}

// Option is a functional option for configuring the Watchdog.
type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout overrides the idle timeout.
// Default: 15 minutes
func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		if timeout > 0 {
			opts.timeout = timeout
		}
	}
}

// Watchdog observes interaction signals while the wallet is unlocked and
// invokes the lock callback exactly once after the idle timeout elapses. It
// starts suspended; the owner calls Start on unlock and Suspend on
// lock/logout.
type Watchdog struct {
	timeout time.Duration
	onLock  func()

	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	suspended bool
}

// New creates a suspended watchdog. onLock runs on the timer goroutine; it
// must be safe to call from there.
func New(onLock func(), opts ...Option) *Watchdog {
	o := &options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(o)
	}
	return &Watchdog{
		timeout:   o.timeout,
		onLock:    onLock,
		suspended: true,
	}
}

// Start arms the watchdog and schedules the first deadline.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.suspended = false
	w.reschedule()
}

// Suspend cancels any pending deadline. Signals are ignored until the next
// Start.
func (w *Watchdog) Suspend() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.suspended = true
	w.cancel()
}

// Observe registers an interaction signal. Unknown signal types are ignored.
func (w *Watchdog) Observe(signal Signal) {
	if !signal.valid() {
		return
	}
	w.Reset()
}

// Reset pushes the deadline out by the full timeout, if running.
func (w *Watchdog) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.suspended {
		return
	}
	w.reschedule()
}

// reschedule arms a fresh deadline. Bumping the generation invalidates any
// fire goroutine whose timer already expired but has not taken the mutex yet:
// Stop cannot cancel an expired timer, so the generation check is what keeps a
// stale deadline from locking after a later reset.
func (w *Watchdog) reschedule() {
	w.cancel()
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(w.timeout, func() { w.fire(gen) })
}

func (w *Watchdog) cancel() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	if w.suspended || gen != w.gen {
		// Suspend or a reset raced the timer; this deadline is dead.
		w.mu.Unlock()
		return
	}
	w.suspended = true
	w.timer = nil
	w.mu.Unlock()

	log.Debug("idle timeout elapsed, locking wallet")
	w.onLock()
}
