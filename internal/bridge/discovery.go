package bridge

import (
	"context"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/go-co-op/gocron/v2"
)

// DefaultDiscoveryInterval is how often the platform's device list is
// reconciled against the Registry when not overridden.
const DefaultDiscoveryInterval = 600 * time.Second

// Discovery periodically reconciles the Registry against the platform's
// device list (spec §4.4). It never removes devices: known-but-no-longer-
// returned IDs are logged, not acted on (spec §1 Non-goals).
type Discovery struct {
	Platform Platform
	Registry *Registry
	Queue    *PriorityQueue
	Clock    Clock
	Interval time.Duration
}

// Run blocks, reconciling once immediately and then on every tick, until
// ctx is cancelled. Scheduling is delegated to a gocron.Scheduler, the same
// duration-job idiom used for periodic background work elsewhere (spec
// §4.4 only mandates the cadence, not the mechanism).
func (d *Discovery) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultDiscoveryInterval
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		cclog.Errorf("discovery: could not create scheduler, falling back to immediate-only reconcile: %s", err.Error())
		d.reconcileOnce(ctx)
		<-ctx.Done()
		return
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { d.reconcileOnce(ctx) }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cclog.Errorf("discovery: could not register reconcile job: %s", err.Error())
		return
	}

	s.Start()
	<-ctx.Done()
	_ = s.Shutdown()
}

func (d *Discovery) reconcileOnce(ctx context.Context) {
	records, err := d.Platform.ListDevices(ctx)
	if err != nil {
		cclog.Errorf("discovery: list_devices failed: %s", err.Error())
		return
	}

	now := nowEpoch(d.Clock)
	added := 0
	seen := make(map[int64]struct{}, len(records))

	for _, rec := range records {
		seen[rec.ID] = struct{}{}
		if d.Registry.Has(rec.ID) {
			continue
		}

		device, err := NewDevice(rec, now)
		if err != nil {
			cclog.Warnf("discovery: skipping device %d: %s", rec.ID, err.Error())
			continue
		}

		stored, inserted := d.Registry.InsertIfAbsent(device)
		if !inserted {
			continue // lost an insertion race to another goroutine
		}

		d.Queue.Push(stored.ID, stored.Schedule.DueAt, stored.Schedule.Generation.Load())
		added++
	}

	if added > 0 {
		cclog.Infof("discovery: added %d new device(s)", added)
	}

	stale := 0
	for id := range d.Registry.KnownIDs() {
		if _, ok := seen[id]; !ok {
			stale++
		}
	}
	if stale > 0 {
		cclog.Debugf("discovery: %d known device(s) not returned by platform this cycle", stale)
	}
}
