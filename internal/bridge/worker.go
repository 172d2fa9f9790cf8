package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/sdg-telemetry/bridge/internal/metrics"
)

// DefaultWorkerCount is the fixed-size fetch worker pool size (spec §4.7).
const DefaultWorkerCount = 10

// ErrMissingRequiredValue is returned when a sample lacks a value for a
// tag the device's model requires (spec §4.7 step 6, §7).
var ErrMissingRequiredValue = errors.New("sample missing required channel value")

// ErrEmptyResult is returned when upstream returns no samples at all.
var ErrEmptyResult = errors.New("upstream returned no samples")

// channelLocks serializes channel creation per (device, tag) so two
// workers racing to discover the same missing tag converge on one channel
// ID (spec §4.7's idempotent-creation requirement).
type channelLocks struct {
	mu    sync.Mutex
	inUse map[string]*sync.Mutex
}

func newChannelLocks() *channelLocks {
	return &channelLocks{inUse: make(map[string]*sync.Mutex)}
}

func (c *channelLocks) lock(key string) func() {
	c.mu.Lock()
	l, ok := c.inUse[key]
	if !ok {
		l = &sync.Mutex{}
		c.inUse[key] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// WorkerPool runs a fixed number of fetch workers consuming device IDs
// from a shared work channel (spec §4.7).
type WorkerPool struct {
	Registry *Registry
	Queue    *PriorityQueue
	Upstream Upstream
	Platform Platform
	Clock    Clock
	Output   *OutputQueue
	Count    int

	chLocks *channelLocks
}

// Run starts Count workers and blocks until ctx is cancelled and all
// workers have drained their current attempt.
func (p *WorkerPool) Run(ctx context.Context, work <-chan int64) {
	count := p.Count
	if count <= 0 {
		count = DefaultWorkerCount
	}
	if p.chLocks == nil {
		p.chLocks = newChannelLocks()
	}

	var wg sync.WaitGroup
	wg.Add(count)
	for i := 0; i < count; i++ {
		go func() {
			defer wg.Done()
			p.loop(ctx, work)
		}()
	}
	wg.Wait()
}

func (p *WorkerPool) loop(ctx context.Context, work <-chan int64) {
	for {
		select {
		case <-ctx.Done():
			return
		case deviceID, ok := <-work:
			if !ok {
				return
			}
			p.handle(ctx, deviceID)
		}
	}
}

func (p *WorkerPool) handle(ctx context.Context, deviceID int64) {
	device, ok := p.Registry.Get(deviceID)
	if !ok {
		return
	}

	device.Mu.Lock()
	defer device.Mu.Unlock()

	device.Schedule.InFlight = true
	metrics.DevicesInFlight.Inc()
	defer func() {
		device.Schedule.InFlight = false
		metrics.DevicesInFlight.Dec()
	}()

	if err := p.fetchOne(ctx, device); err != nil {
		cclog.Warnf("worker: fetch failed for device %d: %s", device.ID, err.Error())
		device.Schedule.IncError()
		metrics.FetchErrorsTotal.Inc()
	}

	now := nowEpoch(p.Clock)
	device.Schedule.UpdateDueAt(now)
	device.Schedule.Generation.Add(1)
	p.Queue.Push(device.ID, device.Schedule.DueAt, device.Schedule.Generation.Load())
}

// fetchOne performs a single fetch-transform-publish attempt for a device.
// Called with device.Mu held. Returns a non-nil error on any failure kind
// enumerated in spec §7; on success it has already updated LastSeen and
// tx_history and enqueued the batch.
func (p *WorkerPool) fetchOne(ctx context.Context, device *Device) error {
	since := device.Schedule.LastSeen

	samples, err := p.Upstream.FetchSamples(ctx, device.LookupID, since)
	if err != nil {
		return fmt.Errorf("fetch_samples: %w", err)
	}
	if len(samples) == 0 {
		return ErrEmptyResult
	}

	batch, lastSeen, err := p.buildBatch(ctx, device, samples)
	if err != nil {
		return err
	}

	if err := p.Output.Push(ctx, batch); err != nil {
		return fmt.Errorf("output queue: %w", err)
	}

	device.Schedule.AddSuccessfulTx(lastSeen)
	device.Schedule.LastSeen = lastSeen
	return nil
}

// buildBatch transforms raw upstream samples into an OutputBatch,
// resolving or lazily creating channels as needed (spec §4.7 step 6).
func (p *WorkerPool) buildBatch(ctx context.Context, device *Device, samples []Sample) (OutputBatch, int64, error) {
	tags := device.ChannelTags()

	batch := OutputBatch{
		DeviceID:   device.ID,
		SignalType: SignalTypeNBIoT,
	}

	var voltages []float64
	var lastSeen int64

	for _, s := range samples {
		timeStr, ok := s.TimeString()
		if !ok {
			return OutputBatch{}, 0, fmt.Errorf("%w: missing Time field", ErrMissingRequiredValue)
		}
		ts, err := parseUpstreamTime(timeStr)
		if err != nil {
			return OutputBatch{}, 0, fmt.Errorf("parsing sample time %q: %w", timeStr, err)
		}
		if ts > lastSeen {
			lastSeen = ts
		}

		for _, tag := range tags {
			channelID, err := p.resolveChannel(ctx, device, tag)
			if err != nil {
				return OutputBatch{}, 0, fmt.Errorf("resolving channel %q: %w", tag, err)
			}

			value, ok := s.Float(tag)
			if !ok {
				return OutputBatch{}, 0, fmt.Errorf("%w: tag %q", ErrMissingRequiredValue, tag)
			}

			batch.Samples = append(batch.Samples, OutputSample{
				ChannelID: channelID,
				Value:     value,
				Timestamp: ts,
			})
		}

		if v, ok := s.Battery(); ok {
			voltages = append(voltages, v)
		}
		if v, ok := s.SignalStrength(); ok {
			batch.Signals = append(batch.Signals, SignalSample{Timestamp: ts, Value: v})
		}
	}

	if len(voltages) > 0 {
		mean := meanFloat64(voltages)
		batch.Battery = &mean
	}

	batch.LastSeen = lastSeen
	return batch, lastSeen, nil
}

// resolveChannel returns the platform channel ID for tag, discovering or
// creating it if this is the first observation of that tag on this
// device. Must be called with device.Mu held.
func (p *WorkerPool) resolveChannel(ctx context.Context, device *Device, tag string) (int64, error) {
	if id, ok := device.ChannelID(tag); ok {
		return id, nil
	}

	unlock := p.chLocks.lock(fmt.Sprintf("%d/%s", device.ID, tag))
	defer unlock()

	// Re-check: another worker (or an earlier iteration of this sample
	// loop) may have created it while we waited for the lock.
	if id, ok := device.ChannelID(tag); ok {
		return id, nil
	}

	channels, err := p.Platform.ListChannels(ctx, device.ID)
	if err != nil {
		return 0, fmt.Errorf("list_channels: %w", err)
	}
	for _, c := range channels {
		if c.Tag == tag {
			device.AddChannel(c.ID, c.Tag)
			return c.ID, nil
		}
	}

	created, err := p.Platform.CreateChannel(ctx, device.ID, tag)
	if err != nil {
		return 0, fmt.Errorf("create_channel: %w", err)
	}
	if created.Tag != tag {
		return 0, fmt.Errorf("channel creation mismatch: requested %q, platform returned %q", tag, created.Tag)
	}

	device.AddChannel(created.ID, created.Tag)
	return created.ID, nil
}

func meanFloat64(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
