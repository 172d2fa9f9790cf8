package bridge

import (
	"context"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/sdg-telemetry/bridge/internal/metrics"
)

const (
	// publisherFlushSize is the batch-count flush threshold (spec §4.8).
	publisherFlushSize = 200
	// publisherFlushInterval is the time-based flush threshold (spec §4.8).
	publisherFlushInterval = 2 * time.Second
	// publisherReceiveTimeout bounds each drain attempt so the flush timer
	// is re-checked even while the queue is empty (spec §4.8).
	publisherReceiveTimeout = 1 * time.Second
)

// Publisher drains the output queue into size/time-bounded publish calls
// on the bus (spec §4.8). It preserves the output queue's insertion order
// within each flush (spec §5).
type Publisher struct {
	Output *OutputQueue
	Bus    Bus
	Clock  Clock
}

// Run blocks until ctx is cancelled, flushing any partial buffer first.
func (p *Publisher) Run(ctx context.Context) {
	buf := make([]OutputBatch, 0, publisherFlushSize)
	lastFlush := p.Clock.Now()

	for {
		select {
		case <-ctx.Done():
			p.flush(context.Background(), &buf)
			return
		default:
		}

		timer := time.NewTimer(publisherReceiveTimeout)
		select {
		case b, ok := <-p.Output.ch:
			timer.Stop()
			if !ok {
				p.flush(context.Background(), &buf)
				return
			}
			buf = append(buf, b)
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			p.flush(context.Background(), &buf)
			return
		}

		if len(buf) >= publisherFlushSize || p.Clock.Now().Sub(lastFlush) >= publisherFlushInterval {
			p.flush(ctx, &buf)
			lastFlush = p.Clock.Now()
		}
	}
}

func (p *Publisher) flush(ctx context.Context, buf *[]OutputBatch) {
	if len(*buf) == 0 {
		return
	}
	if err := p.Bus.PublishBatch(ctx, *buf); err != nil {
		cclog.Errorf("publisher: publish_batch failed, dropping %d batch(es): %s", len(*buf), err.Error())
		metrics.PublishFailuresTotal.Inc()
	} else {
		metrics.BatchesPublishedTotal.Add(float64(len(*buf)))
	}
	*buf = (*buf)[:0]
}
