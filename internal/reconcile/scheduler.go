// Package reconcile contains the reconciliation engine: the
// scheduling loop that decides when a scan-and-fix pass runs, and the
// pass itself.
package reconcile

import (
	"context"
	"time"
)

// PassFunc runs one reconciliation pass. It may block on filesystem
// I/O; the scheduler keeps ingesting triggers while it does.
type PassFunc func(ctx context.Context)

// Scheduler merges the periodic timer with change notifications and
// turns them into single reconciliation passes.
//
// Scheduling contract:
//   - a timer tick triggers a pass per tick, never coalesced with
//     other ticks;
//   - a change notification (re)starts the settle window, and only
//     the window expiring triggers a pass, so a burst of filesystem
//     churn collapses into one;
//   - at most one pass runs at a time, and at most one is queued: a
//     trigger arriving mid-pass sets a pending flag that starts
//     exactly one follow-up pass when the current one completes.
//
// All scheduling state (running, pending, the settle timer) is owned
// by the single goroutine inside Run; producers only touch Notify's
// buffered channel.
type Scheduler struct {
	interval time.Duration
	settle   time.Duration
	notify   chan struct{}
	pass     PassFunc
}

// notifyBufferSize keeps the producer side of Notify from ever
// blocking, even when notifications storm in faster than the
// scheduler drains them.
const notifyBufferSize = 64

// NewScheduler creates a scheduler that runs pass on the given
// periodic interval and after change notifications settle.
func NewScheduler(interval, settle time.Duration, pass PassFunc) *Scheduler {
	return &Scheduler{
		interval: interval,
		settle:   settle,
		notify:   make(chan struct{}, notifyBufferSize),
		pass:     pass,
	}
}

// Notify signals that something changed on disk. It never blocks: if
// the buffer is full a notification is already pending, which is all
// a wake-up signal can convey anyway. Safe to call from any
// goroutine.
func (s *Scheduler) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run executes the scheduling loop until ctx is canceled. One
// unconditional pass runs at startup before any trigger is waited on.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// The settle timer starts disarmed; only notifications arm it.
	settle := time.NewTimer(s.settle)
	if !settle.Stop() {
		<-settle.C
	}
	defer settle.Stop()

	done := make(chan struct{}, 1)
	running := false
	pending := false

	start := func() {
		running = true
		go func() {
			s.pass(ctx)
			done <- struct{}{}
		}()
	}

	trigger := func() {
		if running {
			pending = true
			return
		}
		start()
	}

	start()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			trigger()

		case <-s.notify:
			// Restart the settle window; the pass happens when it
			// expires without further notifications.
			if !settle.Stop() {
				select {
				case <-settle.C:
				default:
				}
			}
			settle.Reset(s.settle)

		case <-settle.C:
			trigger()

		case <-done:
			if pending {
				pending = false
				start()
			} else {
				running = false
			}
		}
	}
}
