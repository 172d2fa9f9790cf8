package bridge

import (
	"context"
	"time"
)

// schedulerIdleTick is the fallback sleep when the heap is empty, so the
// loop still observes ctx cancellation promptly.
const schedulerIdleTick = 1 * time.Second

// Scheduler pops due entries from the priority queue, sleeps to the exact
// due time, and dispatches device IDs to the work channel. It is the sole
// consumer of the heap; it never calls upstream and never mutates a
// Schedule (spec §4.6).
type Scheduler struct {
	Queue *PriorityQueue
	Clock Clock
	Work  chan<- int64
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		e, ok := s.Queue.PopDue()
		if !ok {
			if !sleepOrDone(ctx, schedulerIdleTick) {
				return
			}
			continue
		}

		now := nowEpoch(s.Clock)
		if e.DueAt > now {
			if !sleepOrDone(ctx, time.Duration(e.DueAt-now)*time.Second) {
				return
			}
		}

		select {
		case s.Work <- e.DeviceID:
		case <-ctx.Done():
			return
		}
	}
}

// sleepOrDone waits for d or ctx cancellation, returning false if ctx won
// the race.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
