// Package config loads the bridge's entire configuration surface from
// environment variables (SPEC_FULL.md §6 — no JSON configuration file,
// unlike the teacher's config.json convention). A .env file, if present, is
// loaded first via godotenv so local development doesn't require exporting
// variables by hand.
package config

import (
	"fmt"
	"os"
	"strconv"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/joho/godotenv"
	"github.com/sdg-telemetry/bridge/internal/bridge"
	"github.com/sdg-telemetry/bridge/internal/transport"
	"github.com/sdg-telemetry/bridge/pkg/nats"
)

// Config is the fully resolved process configuration.
type Config struct {
	LogLevel    string
	ServiceName string

	IntabBaseURL string
	Intab        transport.Credentials

	SDGBaseURL string
	SDG        transport.Credentials

	Nats nats.NatsConfig

	Supervisor bridge.Config
}

// Load reads and validates every required environment variable, returning
// an error naming every missing one (spec §6: fail fast on startup).
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	var missing []string

	req := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg.LogLevel = opt("LOG_LEVEL", "info")
	cfg.ServiceName = opt("SERVICE_NAME", "sdg-bridge")

	cfg.IntabBaseURL = req("INTAB_API_BASE_URL")
	cfg.Intab = transport.Credentials{
		UsernameKey: opt("INTAB_API_USERNAME_KEY", "email"),
		Username:    req("INTAB_API_USERNAME"),
		Password:    req("INTAB_API_PASSWORD"),
		LoginURL:    cfg.IntabBaseURL + "/auth/login",
	}

	cfg.SDGBaseURL = req("SDG_API_BASE_URL")
	cfg.SDG = transport.Credentials{
		UsernameKey: opt("SDG_API_USERNAME_KEY", "username"),
		Username:    req("SDG_API_USERNAME"),
		Password:    req("SDG_API_PASSWORD"),
		LoginURL:    cfg.SDGBaseURL + "/auth/login",
	}

	cfg.Nats = nats.NatsConfig{
		Address:    fmt.Sprintf("nats://%s:%s", req("NATS_SERVER1"), opt("NATS_PORT", "4222")),
		Username:   opt("NATS_USERNAME", ""),
		Password:   opt("NATS_PASSWORD", ""),
		StreamName: req("NATS_STREAM_NAME"),
		Subject:    req("NATS_SUBJECT"),
	}

	cfg.Supervisor = bridge.Config{
		WorkerCount:       atoiDefault(opt("BRIDGE_WORKER_COUNT", ""), bridge.DefaultWorkerCount),
		OutputQueueCap:    atoiDefault(opt("BRIDGE_OUTPUT_QUEUE_CAP", ""), 50_000),
		DiscoveryInterval: int64(atoiDefault(opt("BRIDGE_DISCOVERY_INTERVAL_SECONDS", ""), int(bridge.DefaultDiscoveryInterval.Seconds()))),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: missing required environment variables: %v", missing)
	}

	cclog.Init(cfg.LogLevel, true)
	return cfg, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
