package upstream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sdg-telemetry/bridge/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSamplesParsesFlatRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/loggers/42/samples", r.URL.Path)
		var req fetchSamplesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.FromDate)
		assert.NotEmpty(t, req.ToDate)

		json.NewEncoder(w).Encode([]map[string]any{
			{"Time": "2026-01-01T00:00:00Z", "Humidity": 55.0},
		})
	}))
	defer srv.Close()

	c := NewClient(transport.NewClient("sdg", nil, nil, transport.DefaultRetryPolicy()), srv.URL)
	samples, err := c.FetchSamples(t.Context(), 42, 0)
	require.NoError(t, err)
	require.Len(t, samples, 1)

	v, ok := samples[0].Float("Humidity")
	require.True(t, ok)
	assert.Equal(t, 55.0, v)
}
