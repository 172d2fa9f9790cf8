// Package bus adapts pkg/nats into the bridge.Bus capability contract:
// it Avro-encodes each flush of output batches and publishes the result
// onto the platform's durable JetStream stream (SPEC_FULL.md §4.15).
package bus

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/nats-io/nats.go"
	"github.com/sdg-telemetry/bridge/internal/avrocodec"
	"github.com/sdg-telemetry/bridge/internal/bridge"
	natspkg "github.com/sdg-telemetry/bridge/pkg/nats"
)

// Publisher implements bridge.Bus over a JetStream-backed nats.Client.
type Publisher struct {
	client  *natspkg.Client
	js      nats.JetStreamContext
	codec   *avrocodec.Codec
	subject string
}

// New builds a Publisher, establishing the JetStream context up front so
// that connectivity problems surface at startup rather than on first flush.
func New(client *natspkg.Client, subject string) (*Publisher, error) {
	js, err := client.JetStream()
	if err != nil {
		return nil, err
	}
	codec, err := avrocodec.NewCodec()
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, js: js, codec: codec, subject: subject}, nil
}

// PublishBatch implements bridge.Bus. Every call is one wire message
// containing the Avro-encoded batches from a single flush (spec §4.9); a
// deterministic Msg-Id header lets the platform's JetStream deduplication
// window drop retransmits after a publish that succeeded server-side but
// whose ack the bridge failed to observe.
func (p *Publisher) PublishBatch(ctx context.Context, batches []bridge.OutputBatch) error {
	if len(batches) == 0 {
		return nil
	}

	payload, err := p.codec.EncodeOCF(batches)
	if err != nil {
		return fmt.Errorf("bus: encode batch: %w", err)
	}

	header := nats.Header{}
	header.Set(nats.MsgIdHdr, msgID(batches))

	if err := p.client.Publish(ctx, p.js, p.subject, payload, header); err != nil {
		return err
	}

	cclog.Debugf("bus: published %d batches to %s", len(batches), p.subject)
	return nil
}

// msgID derives a stable Nats-Msg-Id from the device IDs and last-seen
// timestamps present in the flush, so identical retransmitted flushes
// collide in JetStream's dedup window instead of double-publishing.
func msgID(batches []bridge.OutputBatch) string {
	h := sha1.New()
	for _, b := range batches {
		fmt.Fprintf(h, "%d:%d;", b.DeviceID, b.LastSeen)
	}
	return hex.EncodeToString(h.Sum(nil))
}
