package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeBus struct {
	mu      sync.Mutex
	flushes [][]OutputBatch
	err     error
}

func (b *fakeBus) PublishBatch(ctx context.Context, batches []OutputBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	cp := make([]OutputBatch, len(batches))
	copy(cp, batches)
	b.flushes = append(b.flushes, cp)
	return nil
}

func (b *fakeBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.flushes)
}

func TestPublisherFlushesOnSizeThreshold(t *testing.T) {
	out := NewOutputQueue(publisherFlushSize + 10)
	bus := &fakeBus{}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := &Publisher{Output: out, Bus: bus, Clock: clock}

	for i := 0; i < publisherFlushSize; i++ {
		require.NoError(t, out.Push(context.Background(), OutputBatch{DeviceID: int64(i)}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return bus.count() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestPublisherFlushesRemainderOnShutdown(t *testing.T) {
	out := NewOutputQueue(10)
	bus := &fakeBus{}
	clock := &fakeClock{now: time.Unix(0, 0)}
	p := &Publisher{Output: out, Bus: bus, Clock: clock}

	require.NoError(t, out.Push(context.Background(), OutputBatch{DeviceID: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	assert.GreaterOrEqual(t, bus.count(), 1)
}

func TestPublisherDropsBufferOnPublishFailure(t *testing.T) {
	var buf []OutputBatch
	p := &Publisher{}
	bus := &fakeBus{err: assert.AnError}
	p.Bus = bus

	buf = append(buf, OutputBatch{DeviceID: 1})
	p.flush(context.Background(), &buf)

	assert.Empty(t, buf, "the buffer must be dropped even when publish fails, per no-spool policy")
}
