package bridge

import (
	"context"
	"sync"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/sdg-telemetry/bridge/pkg/runtimeEnv"
)

// Config bundles the tunables a Supervisor needs beyond its collaborators.
type Config struct {
	WorkerCount       int
	OutputQueueCap    int
	DiscoveryInterval int64 // seconds; 0 uses DefaultDiscoveryInterval
}

// Supervisor starts Discovery, Scheduler, Publisher and the fetch-worker
// pool as peer cooperative tasks sharing one cancellation signal, and
// awaits their clean stop (spec §4.9).
type Supervisor struct {
	Registry *Registry
	Queue    *PriorityQueue
	Upstream Upstream
	Platform Platform
	Bus      Bus
	Clock    Clock
	Cfg      Config

	Output *OutputQueue
	work   chan int64
}

// NewSupervisor wires a Supervisor's internal plumbing (output queue, work
// channel) from its collaborators and config.
func NewSupervisor(registry *Registry, queue *PriorityQueue, up Upstream, pf Platform, bus Bus, clock Clock, cfg Config) *Supervisor {
	outCap := cfg.OutputQueueCap
	if outCap <= 0 {
		outCap = 50_000
	}
	return &Supervisor{
		Registry: registry,
		Queue:    queue,
		Upstream: up,
		Platform: pf,
		Bus:      bus,
		Clock:    clock,
		Cfg:      cfg,
		Output:   NewOutputQueue(outCap),
		work:     make(chan int64),
	}
}

// Run starts every loop and blocks until ctx is cancelled, then waits for
// all loops to exit before returning.
func (s *Supervisor) Run(ctx context.Context) {
	discovery := &Discovery{
		Platform: s.Platform,
		Registry: s.Registry,
		Queue:    s.Queue,
		Clock:    s.Clock,
		Interval: time.Duration(s.Cfg.DiscoveryInterval) * time.Second,
	}
	scheduler := &Scheduler{Queue: s.Queue, Clock: s.Clock, Work: s.work}
	pool := &WorkerPool{
		Registry: s.Registry,
		Queue:    s.Queue,
		Upstream: s.Upstream,
		Platform: s.Platform,
		Clock:    s.Clock,
		Output:   s.Output,
		Count:    s.Cfg.WorkerCount,
	}
	publisher := &Publisher{Output: s.Output, Bus: s.Bus, Clock: s.Clock}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cclog.Infof("supervisor: starting %s", name)
			fn(ctx)
			cclog.Infof("supervisor: %s stopped", name)
		}()
	}

	run("discovery", discovery.Run)
	run("scheduler", scheduler.Run)
	run("publisher", publisher.Run)
	run("fetch-workers", func(ctx context.Context) { pool.Run(ctx, s.work) })

	runtimeEnv.SystemdNotify(true, "bridge running")

	<-ctx.Done()
	cclog.Info("supervisor: stop signal received, awaiting loops")
	runtimeEnv.SystemdNotify(false, "shutting down")
	wg.Wait()
	cclog.Info("supervisor: clean shutdown complete")
}
