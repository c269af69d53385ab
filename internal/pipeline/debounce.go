package pipeline

import (
	"sync"
	"time"
)

// Debouncer calls fire with the most recent value once no new value has
// arrived for the quiet period. Every Trigger cancels the pending timer;
// a sequence number keeps a timer that already started from firing a
// superseded value.
type Debouncer struct {
	quiet time.Duration
	fire  func(string)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	stopped bool
	wg      sync.WaitGroup // armed or running timer callbacks
}

// NewDebouncer returns a debouncer with the given quiet period.
func NewDebouncer(quiet time.Duration, fire func(string)) *Debouncer {
	return &Debouncer{quiet: quiet, fire: fire}
}

// Trigger (re)arms the timer with v. It is a no-op after Stop.
func (d *Debouncer) Trigger(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.seq++
	seq := d.seq

	d.wg.Add(1)
	d.timer = time.AfterFunc(d.quiet, func() {
		defer d.wg.Done()

		d.mu.Lock()
		current := seq == d.seq && !d.stopped
		d.mu.Unlock()

		if current {
			d.fire(v)
		}
	})
}

// Stop cancels any pending value and waits for a running callback to return.
// Safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.timer = nil
	d.mu.Unlock()

	d.wg.Wait()
}
