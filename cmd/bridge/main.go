// Command bridge runs the SDG-to-platform telemetry bridge: it polls the
// upstream device-data API on a per-device adaptive schedule and republishes
// normalized batches onto the platform's message bus (SPEC_FULL.md §1).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/sdg-telemetry/bridge/internal/bridge"
	"github.com/sdg-telemetry/bridge/internal/bus"
	"github.com/sdg-telemetry/bridge/internal/config"
	"github.com/sdg-telemetry/bridge/internal/metrics"
	"github.com/sdg-telemetry/bridge/internal/platform"
	"github.com/sdg-telemetry/bridge/internal/transport"
	"github.com/sdg-telemetry/bridge/internal/upstream"
	"github.com/sdg-telemetry/bridge/pkg/nats"
)

const startupProbeRetries = 5

func main() {
	cfg, err := config.Load()
	if err != nil {
		cclog.Abortf("%s", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	intabTokens := transport.NewTokenProvider("intab", cfg.Intab, &http.Client{Timeout: 10 * time.Second})
	intabTransport := transport.NewClient("intab", intabTokens, transport.NewRateLimiter(transport.DefaultRateLimiterConfig()), transport.DefaultRetryPolicy())
	platformClient := platform.NewClient(intabTransport, cfg.IntabBaseURL)

	sdgTokens := transport.NewTokenProvider("sdg", cfg.SDG, &http.Client{Timeout: 10 * time.Second})
	sdgTransport := transport.NewClient("sdg", sdgTokens, transport.NewRateLimiter(transport.DefaultRateLimiterConfig()), transport.DefaultRetryPolicy())
	upstreamClient := upstream.NewClient(sdgTransport, cfg.SDGBaseURL)

	natsClient, err := nats.NewClient(&cfg.Nats)
	if err != nil {
		cclog.Abortf("nats: %s", err.Error())
	}
	defer natsClient.Close()

	busPublisher, err := bus.New(natsClient, cfg.Nats.Subject)
	if err != nil {
		cclog.Abortf("bus: %s", err.Error())
	}

	if err := probePlatform(ctx, platformClient); err != nil {
		cclog.Abortf("platform unreachable after %d attempts: %s", startupProbeRetries, err.Error())
	}

	registry := bridge.NewRegistry()
	queue := bridge.NewPriorityQueue(registry)
	supervisor := bridge.NewSupervisor(registry, queue, upstreamClient, platformClient, busPublisher, bridge.SystemClock{}, cfg.Supervisor)

	go serveMetrics()

	cclog.Infof("%s: starting with %d workers", cfg.ServiceName, cfg.Supervisor.WorkerCount)
	supervisor.Run(ctx)
	cclog.Infof("%s: exited", cfg.ServiceName)
}

// probePlatform confirms the platform API is reachable before starting the
// supervisor's loops, so a misconfigured deployment fails fast instead of
// silently discovering zero devices forever (spec §6).
func probePlatform(ctx context.Context, p bridge.Platform) error {
	var err error
	for attempt := 1; attempt <= startupProbeRetries; attempt++ {
		if _, err = p.ListDevices(ctx); err == nil {
			return nil
		}
		cclog.Warnf("startup: platform probe attempt %d/%d failed: %s", attempt, startupProbeRetries, err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return err
}

func serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	if err := http.ListenAndServe(":2112", mux); err != nil {
		cclog.Errorf("metrics: server stopped: %s", err.Error())
	}
}
