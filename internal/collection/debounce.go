package collection

import (
	"sync"
	"time"
)

// DefaultSearchDebounce is the quiet period before free-text search commits.
const DefaultSearchDebounce = 300 * time.Millisecond

// Debouncer collapses a burst of triggers into one call made after the
// burst has been quiet for the configured delay.
type Debouncer struct {
	clock Clock
	timer Timer
	delay time.Duration
	gen   uint64
	mu    sync.Mutex
}

// NewDebouncer creates a debouncer.
func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	if delay <= 0 {
		delay = DefaultSearchDebounce
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Trigger restarts the quiet period; fn runs once it elapses unless another
// Trigger or Cancel arrives first.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.gen == gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
