// Package debounce delays an action until its trigger has gone quiet,
// so rapid-fire input (search-as-you-type) issues one call instead of
// one per keystroke.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recently triggered action once the delay has
// elapsed with no further triggers. Earlier pending actions are
// discarded, not queued.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the delay, cancelling any pending action.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels the pending action, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
