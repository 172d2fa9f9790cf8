package bridge

import "context"

// Upstream is the narrow capability contract for the device-data REST API.
// Transport plumbing, token acquisition and rate limiting live behind the
// concrete implementation (internal/upstream), never in the core.
type Upstream interface {
	FetchSamples(ctx context.Context, lookupID int64, sinceEpoch int64) ([]Sample, error)
}

// Platform is the narrow capability contract for the device/channel
// registry owner.
type Platform interface {
	ListDevices(ctx context.Context) ([]DeviceRecord, error)
	ListChannels(ctx context.Context, deviceID int64) ([]ChannelRecord, error)
	CreateChannel(ctx context.Context, deviceID int64, tag string) (ChannelRecord, error)
}

// Bus is the narrow capability contract for the downstream message bus.
type Bus interface {
	PublishBatch(ctx context.Context, batches []OutputBatch) error
}
