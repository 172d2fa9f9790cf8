package platform

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sdg-telemetry/bridge/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDevicesParsesNestedChannels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/devices", r.URL.Path)
		json.NewEncoder(w).Encode([]wireDevice{
			{ID: 1, LookupID: 100, Tag: "IOTSU_N3_RHTEMP", Channels: []wireChannel{{ID: 10, Tag: "Humidity"}}},
		})
	}))
	defer srv.Close()

	c := NewClient(transport.NewClient("intab", nil, nil, transport.DefaultRetryPolicy()), srv.URL)
	devices, err := c.ListDevices(t.Context())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, int64(100), devices[0].LookupID)
	require.Len(t, devices[0].Channels, 1)
	assert.Equal(t, "Humidity", devices[0].Channels[0].Tag)
}

func TestCreateChannelSendsResolvedUnit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createChannelRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "°C", req.Unit)
		assert.Equal(t, "Temperature", req.Tag)
		json.NewEncoder(w).Encode(wireChannel{ID: 99, Tag: "Temperature"})
	}))
	defer srv.Close()

	c := NewClient(transport.NewClient("intab", nil, nil, transport.DefaultRetryPolicy()), srv.URL)
	ch, err := c.CreateChannel(t.Context(), 1, "Temperature")
	require.NoError(t, err)
	assert.Equal(t, int64(99), ch.ID)
}
