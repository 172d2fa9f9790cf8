// Package nats provides the JetStream-backed publish client the bridge uses
// to emit batches onto the platform's message bus. Wraps the nats.go library
// with connection management and automatic reconnection handling, adapted
// from a general-purpose pub/sub wrapper down to this process's one-way
// publish-only usage (spec §6 — the bridge never subscribes).
//
// # Usage
//
//	client, err := nats.NewClient(&cfg)
//	js, err := client.JetStream()
//	client.Publish(ctx, js, subject, data, headers)
package nats

import (
	"context"
	"fmt"
	"sync"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/nats-io/nats.go"
)

// Client wraps a NATS connection used for publishing.
type Client struct {
	conn *nats.Conn
	mu   sync.Mutex
}

// NewClient connects to the configured NATS server. If cfg is nil, uses the
// global Keys config.
func NewClient(cfg *NatsConfig) (*Client, error) {
	if cfg == nil {
		cfg = &Keys
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("NATS address is required")
	}

	var opts []nats.Option

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	if cfg.CredsFilePath != "" {
		opts = append(opts, nats.UserCredentials(cfg.CredsFilePath))
	}

	opts = append(opts, nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
		if err != nil {
			cclog.Warnf("NATS disconnected: %v", err)
		}
	}))

	opts = append(opts, nats.ReconnectHandler(func(nc *nats.Conn) {
		cclog.Infof("NATS reconnected to %s", nc.ConnectedUrl())
	}))

	opts = append(opts, nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
		cclog.Errorf("NATS error: %v", err)
	}))

	nc, err := nats.Connect(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("NATS connect failed: %w", err)
	}

	cclog.Infof("NATS connected to %s", cfg.Address)

	return &Client{conn: nc}, nil
}

// JetStream returns a JetStream context bound to this connection. The
// context is not tied to a stream name: a publish lands in whichever stream
// on the server captures its subject.
func (c *Client) JetStream() (nats.JetStreamContext, error) {
	js, err := c.conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("NATS jetstream context: %w", err)
	}
	return js, nil
}

// Publish sends a message with headers to subject on the given JetStream
// context, blocking for the server ack or ctx's deadline.
func (c *Client) Publish(ctx context.Context, js nats.JetStreamContext, subject string, data []byte, header nats.Header) error {
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  header,
	}
	if _, err := js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("NATS publish to '%s' failed: %w", subject, err)
	}
	return nil
}

// IsConnected returns true if the client has an active connection.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close closes the NATS connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		cclog.Info("NATS connection closed")
	}
}
