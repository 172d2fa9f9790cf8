package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeviceRejectsUnknownModel(t *testing.T) {
	_, err := NewDevice(DeviceRecord{ID: 1, LookupID: 1, Tag: "NOT_A_MODEL"}, 0)
	require.Error(t, err)
	var target ErrUnknownModel
	assert.ErrorAs(t, err, &target)
}

func TestNewDeviceLowercaseTagStillMatches(t *testing.T) {
	d, err := NewDevice(DeviceRecord{ID: 1, LookupID: 1, Tag: "iotsu_n3_aq05"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"CO2", "Humidity", "Temperature"}, d.ChannelTags())
}

func TestAddChannelIsIdempotent(t *testing.T) {
	d, err := NewDevice(DeviceRecord{ID: 1, LookupID: 1, Tag: "IOTSU_N3_RHTEMP"}, 0)
	require.NoError(t, err)

	d.AddChannel(10, "Humidity")
	d.AddChannel(10, "Humidity")

	assert.Len(t, d.Channels, 1)
	id, ok := d.ChannelID("Humidity")
	require.True(t, ok)
	assert.Equal(t, int64(10), id)
}

func TestNewDeviceSeedsChannelsFromRecord(t *testing.T) {
	d, err := NewDevice(DeviceRecord{
		ID: 1, LookupID: 1, Tag: "IOTSU_N3_RHTEMP",
		Channels: []ChannelRecord{{ID: 5, Tag: "Humidity"}},
	}, 0)
	require.NoError(t, err)

	id, ok := d.ChannelID("Humidity")
	require.True(t, ok)
	assert.Equal(t, int64(5), id)
}
