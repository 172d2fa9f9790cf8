// Package upstream implements the device-data REST API ("SDG") client:
// the bridge.Upstream capability contract.
package upstream

import (
	"context"
	"fmt"

	"github.com/sdg-telemetry/bridge/internal/bridge"
	"github.com/sdg-telemetry/bridge/internal/transport"
)

// sampleResponse mirrors the upstream's raw JSON sample shape: a flat
// object per sample, keys vary by device model (spec §6, §3).
type sampleResponse map[string]any

// Client implements bridge.Upstream against the SDG API.
type Client struct {
	transport *transport.Client
	baseURL   string
}

// NewClient builds an SDG client over a shared transport.Client.
func NewClient(t *transport.Client, baseURL string) *Client {
	return &Client{transport: t, baseURL: baseURL}
}

type fetchSamplesRequest struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

// FetchSamples implements bridge.Upstream.
func (c *Client) FetchSamples(ctx context.Context, lookupID int64, sinceEpoch int64) ([]bridge.Sample, error) {
	url := fmt.Sprintf("%s/loggers/%d/samples", c.baseURL, lookupID)

	req := fetchSamplesRequest{
		FromDate: formatRequestTime(sinceEpoch),
		ToDate:   formatRequestTimeNow(),
	}

	var raw []sampleResponse
	if err := c.transport.DoJSON(ctx, "POST", url, req, &raw); err != nil {
		return nil, fmt.Errorf("sdg: fetch_samples(%d): %w", lookupID, err)
	}

	samples := make([]bridge.Sample, 0, len(raw))
	for _, r := range raw {
		samples = append(samples, bridge.Sample(r))
	}
	return samples, nil
}
