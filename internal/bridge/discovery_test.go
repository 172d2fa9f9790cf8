package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscoveryPlatform struct {
	records []DeviceRecord
	err     error
}

func (f *fakeDiscoveryPlatform) ListDevices(ctx context.Context) ([]DeviceRecord, error) {
	return f.records, f.err
}
func (f *fakeDiscoveryPlatform) ListChannels(ctx context.Context, deviceID int64) ([]ChannelRecord, error) {
	return nil, nil
}
func (f *fakeDiscoveryPlatform) CreateChannel(ctx context.Context, deviceID int64, tag string) (ChannelRecord, error) {
	return ChannelRecord{}, nil
}

func TestReconcileOnceAddsNewDevicesOnly(t *testing.T) {
	reg := NewRegistry()
	existing, err := NewDevice(DeviceRecord{ID: 1, LookupID: 1, Tag: "IOTSU_N3_RHTEMP"}, 0)
	require.NoError(t, err)
	reg.InsertIfAbsent(existing)

	queue := NewPriorityQueue(reg)
	pf := &fakeDiscoveryPlatform{records: []DeviceRecord{
		{ID: 1, LookupID: 1, Tag: "IOTSU_N3_RHTEMP"},
		{ID: 2, LookupID: 2, Tag: "IOTSU_N3_AQ05"},
	}}

	d := &Discovery{Platform: pf, Registry: reg, Queue: queue, Clock: SystemClock{}}
	d.reconcileOnce(context.Background())

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, 1, queue.Len(), "only the newly discovered device should be queued")
}

func TestReconcileOnceSkipsUnknownModel(t *testing.T) {
	reg := NewRegistry()
	queue := NewPriorityQueue(reg)
	pf := &fakeDiscoveryPlatform{records: []DeviceRecord{
		{ID: 1, LookupID: 1, Tag: "UNKNOWN_MODEL"},
	}}

	d := &Discovery{Platform: pf, Registry: reg, Queue: queue, Clock: SystemClock{}}
	d.reconcileOnce(context.Background())

	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, queue.Len())
}
