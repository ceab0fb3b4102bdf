package riokit

import (
	"sync"
	"sync/atomic"
	"time"
)

// debounceWindow is how long the enable button must stay quiet before a
// press is acted on. A bouncing contact keeps restarting the window, so a
// burst of edges collapses into one action.
const debounceWindow = 250 * time.Millisecond

// Debouncer turns a noisy edge stream into single fire() calls. Trigger is
// safe from edge-event context: it only flags the press and restarts the
// timer. fire runs on the timer goroutine.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	armed  atomic.Bool
	fire   func()
}

func NewDebouncer(window time.Duration, fire func()) *Debouncer {
	return &Debouncer{window: window, fire: fire}
}

func (db *Debouncer) Trigger() {
	db.armed.Store(true)

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer == nil {
		db.timer = time.AfterFunc(db.window, db.expire)
	} else {
		db.timer.Reset(db.window)
	}
}

func (db *Debouncer) expire() {
	if db.armed.CompareAndSwap(true, false) {
		db.fire()
	}
}

// Stop discards a pending press. A Trigger racing with Stop may still
// fire once.
func (db *Debouncer) Stop() {
	db.armed.Store(false)

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer != nil {
		db.timer.Stop()
	}
}
