// Package debounce delays a callback until calls to Trigger stop arriving
// for a fixed idle period.
package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Debouncer struct {
	clock clockwork.Clock
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   clockwork.Timer
	gen     uint64
	stopped bool
}

// New returns a Debouncer that runs fn once delay has passed since the last
// Trigger. fn runs on the clock's timer goroutine.
func New(clock clockwork.Clock, delay time.Duration, fn func()) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Debouncer{clock: clock, delay: delay, fn: fn}
}

// Trigger cancels any pending run and schedules a new one. It is a no-op
// after Stop.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.cancelLocked()

	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending run, if any. Later triggers still schedule.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.cancelLocked()
	d.mu.Unlock()
}

// Stop cancels the pending run and disables the debouncer for good.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.cancelLocked()
	d.mu.Unlock()
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.timer != nil
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	// a timer that already fired but has not taken the lock yet sees a
	// newer generation and backs off
	d.gen++
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}
