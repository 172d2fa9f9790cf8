package bridge

import (
	"context"

	"github.com/sdg-telemetry/bridge/internal/metrics"
)

// OutputQueue is the bounded FIFO of output batches between fetch workers
// and the publisher (spec §4.8's backpressure boundary). A blocked Push is
// not an error (spec §7); it is the primary backpressure signal.
type OutputQueue struct {
	ch chan OutputBatch
}

// NewOutputQueue creates a bounded queue of the given capacity.
func NewOutputQueue(capacity int) *OutputQueue {
	return &OutputQueue{ch: make(chan OutputBatch, capacity)}
}

// Push blocks until there is room, ctx is cancelled, or it succeeds.
func (q *OutputQueue) Push(ctx context.Context, b OutputBatch) error {
	select {
	case q.ch <- b:
		metrics.OutputQueueDepth.Set(float64(len(q.ch)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks until an item is available, ctx is cancelled, or the queue is
// closed.
func (q *OutputQueue) Pop(ctx context.Context) (OutputBatch, bool) {
	select {
	case b, ok := <-q.ch:
		metrics.OutputQueueDepth.Set(float64(len(q.ch)))
		return b, ok
	case <-ctx.Done():
		return OutputBatch{}, false
	}
}

// Len reports the current queue depth, for metrics only.
func (q *OutputQueue) Len() int { return len(q.ch) }

// Cap reports the queue's bound, for metrics only.
func (q *OutputQueue) Cap() int { return cap(q.ch) }
