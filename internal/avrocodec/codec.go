// Package avrocodec encodes Output Batches into the Avro Object Container
// File format used as the bus's wire schema (SPEC_FULL.md §3.1), grounded
// on the teacher's own use of goavro for binary time-series encoding
// (internal/memorystore/avroCheckpoint.go, pkg/metricstore/avroHelper.go).
package avrocodec

import (
	"bytes"
	"fmt"

	"github.com/linkedin/goavro/v2"
	"github.com/sdg-telemetry/bridge/internal/bridge"
)

const schemaJSON = `{
  "type": "record",
  "name": "LoggerBatch",
  "namespace": "bridge.telemetry.v1",
  "fields": [
    {"name": "device_id", "type": "long"},
    {"name": "last_seen", "type": "long"},
    {"name": "signal_type", "type": "string"},
    {"name": "samples", "type": {"type": "array", "items": {
      "type": "record", "name": "Sample", "fields": [
        {"name": "channel_id", "type": "long"},
        {"name": "value", "type": "double"},
        {"name": "ts", "type": "long"}
      ]}}},
    {"name": "signals", "type": {"type": "array", "items": {
      "type": "record", "name": "SignalSample", "fields": [
        {"name": "ts", "type": "long"},
        {"name": "value", "type": "double"}
      ]}}},
    {"name": "battery", "type": ["null", "double"], "default": null}
  ]
}`

// Codec Avro-encodes/decodes bridge.OutputBatch values.
type Codec struct {
	codec *goavro.Codec
}

// NewCodec compiles the fixed LoggerBatch schema.
func NewCodec() (*Codec, error) {
	codec, err := goavro.NewCodec(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("avrocodec: compile schema: %w", err)
	}
	return &Codec{codec: codec}, nil
}

// EncodeOCF writes every batch as one record into a single Avro Object
// Container File, preserving slice order (spec §5's insertion-order
// guarantee).
func (c *Codec) EncodeOCF(batches []bridge.OutputBatch) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:     &buf,
		Codec: c.codec,
	})
	if err != nil {
		return nil, fmt.Errorf("avrocodec: new OCF writer: %w", err)
	}

	records := make([]any, 0, len(batches))
	for _, b := range batches {
		records = append(records, toAvroNative(b))
	}

	if err := writer.Append(records); err != nil {
		return nil, fmt.Errorf("avrocodec: append records: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeOCF reads back every LoggerBatch record from an Avro OCF payload,
// used by tests and by any downstream consumer written in Go.
func DecodeOCF(data []byte) ([]bridge.OutputBatch, error) {
	reader, err := goavro.NewOCFReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("avrocodec: new OCF reader: %w", err)
	}

	var out []bridge.OutputBatch
	for reader.Scan() {
		native, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("avrocodec: read record: %w", err)
		}
		b, err := fromAvroNative(native)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func toAvroNative(b bridge.OutputBatch) map[string]any {
	samples := make([]any, 0, len(b.Samples))
	for _, s := range b.Samples {
		samples = append(samples, map[string]any{
			"channel_id": s.ChannelID,
			"value":      s.Value,
			"ts":         s.Timestamp,
		})
	}

	signals := make([]any, 0, len(b.Signals))
	for _, s := range b.Signals {
		signals = append(signals, map[string]any{
			"ts":    s.Timestamp,
			"value": s.Value,
		})
	}

	var battery any
	if b.Battery != nil {
		battery = goavro.Union("double", *b.Battery)
	} else {
		battery = nil
	}

	return map[string]any{
		"device_id":   b.DeviceID,
		"last_seen":   b.LastSeen,
		"signal_type": string(b.SignalType),
		"samples":     samples,
		"signals":     signals,
		"battery":     battery,
	}
}

func fromAvroNative(native any) (bridge.OutputBatch, error) {
	m, ok := native.(map[string]any)
	if !ok {
		return bridge.OutputBatch{}, fmt.Errorf("avrocodec: unexpected record shape %T", native)
	}

	batch := bridge.OutputBatch{
		DeviceID:   m["device_id"].(int64),
		LastSeen:   m["last_seen"].(int64),
		SignalType: bridge.SignalType(m["signal_type"].(string)),
	}

	for _, raw := range m["samples"].([]any) {
		s := raw.(map[string]any)
		batch.Samples = append(batch.Samples, bridge.OutputSample{
			ChannelID: s["channel_id"].(int64),
			Value:     s["value"].(float64),
			Timestamp: s["ts"].(int64),
		})
	}

	for _, raw := range m["signals"].([]any) {
		s := raw.(map[string]any)
		batch.Signals = append(batch.Signals, bridge.SignalSample{
			Timestamp: s["ts"].(int64),
			Value:     s["value"].(float64),
		})
	}

	if u, ok := m["battery"].(map[string]any); ok {
		if v, ok := u["double"].(float64); ok {
			battery := v
			batch.Battery = &battery
		}
	}

	return batch, nil
}
