package nats

// NatsConfig holds the connection parameters for the JetStream bus the
// bridge publishes batches to. Populated directly from environment
// variables by internal/config (spec §6 — no JSON configuration file).
type NatsConfig struct {
	Address       string // e.g. "nats://host:4222"
	Username      string
	Password      string
	CredsFilePath string
	StreamName    string
	Subject       string
}

// Keys is the fallback configuration NewClient uses when passed a nil
// config. Nothing in this module assigns it; cmd/bridge passes its own.
var Keys NatsConfig
