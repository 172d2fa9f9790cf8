// Package platform implements the device/channel registry owner client
// ("Intab"): the bridge.Platform capability contract.
package platform

import (
	"context"
	"fmt"

	"github.com/sdg-telemetry/bridge/internal/bridge"
	"github.com/sdg-telemetry/bridge/internal/transport"
)

// Client implements bridge.Platform against the Intab device/channel API.
type Client struct {
	transport *transport.Client
	baseURL   string
}

// NewClient builds an Intab client over a shared transport.Client.
func NewClient(t *transport.Client, baseURL string) *Client {
	return &Client{transport: t, baseURL: baseURL}
}

type wireChannel struct {
	ID  int64  `json:"id"`
	Tag string `json:"tag"`
}

type wireDevice struct {
	ID       int64         `json:"id"`
	LookupID int64         `json:"lookup_id"`
	Tag      string        `json:"tag"`
	LastSeen int64         `json:"last_seen"`
	Channels []wireChannel `json:"channels"`
}

// ListDevices implements bridge.Platform.
func (c *Client) ListDevices(ctx context.Context) ([]bridge.DeviceRecord, error) {
	url := c.baseURL + "/devices"

	var raw []wireDevice
	if err := c.transport.DoJSON(ctx, "GET", url, nil, &raw); err != nil {
		return nil, fmt.Errorf("intab: list_devices: %w", err)
	}

	out := make([]bridge.DeviceRecord, 0, len(raw))
	for _, d := range raw {
		channels := make([]bridge.ChannelRecord, 0, len(d.Channels))
		for _, c := range d.Channels {
			channels = append(channels, bridge.ChannelRecord{ID: c.ID, Tag: c.Tag})
		}
		out = append(out, bridge.DeviceRecord{
			ID:       d.ID,
			LookupID: d.LookupID,
			Tag:      d.Tag,
			LastSeen: d.LastSeen,
			Channels: channels,
		})
	}
	return out, nil
}

// ListChannels implements bridge.Platform.
func (c *Client) ListChannels(ctx context.Context, deviceID int64) ([]bridge.ChannelRecord, error) {
	url := fmt.Sprintf("%s/devices/%d/channels", c.baseURL, deviceID)

	var raw []wireChannel
	if err := c.transport.DoJSON(ctx, "GET", url, nil, &raw); err != nil {
		return nil, fmt.Errorf("intab: list_channels(%d): %w", deviceID, err)
	}

	out := make([]bridge.ChannelRecord, 0, len(raw))
	for _, c := range raw {
		out = append(out, bridge.ChannelRecord{ID: c.ID, Tag: c.Tag})
	}
	return out, nil
}

type createChannelRequest struct {
	Tag          string `json:"tag"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	HighFrom     int    `json:"high_from"`
	HighTo       int    `json:"high_to"`
	LowFrom      int    `json:"low_from"`
	LowTo        int    `json:"low_to"`
	Color        string `json:"color"`
	DecimalCount int    `json:"decimal_count"`
}

// CreateChannel implements bridge.Platform. The caller (bridge.WorkerPool)
// validates that the returned tag matches the request (spec §6, §7); this
// client only performs the HTTP exchange.
func (c *Client) CreateChannel(ctx context.Context, deviceID int64, tag string) (bridge.ChannelRecord, error) {
	url := fmt.Sprintf("%s/devices/%d/channels", c.baseURL, deviceID)

	req := createChannelRequest{
		Tag:          tag,
		Name:         tag,
		Unit:         bridge.ResolveUnit(tag),
		Color:        "#000000",
		DecimalCount: 1,
	}

	var raw wireChannel
	if err := c.transport.DoJSON(ctx, "POST", url, req, &raw); err != nil {
		return bridge.ChannelRecord{}, fmt.Errorf("intab: create_channel(%d, %q): %w", deviceID, tag, err)
	}

	return bridge.ChannelRecord{ID: raw.ID, Tag: raw.Tag}, nil
}
