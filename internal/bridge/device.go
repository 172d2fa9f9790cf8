package bridge

import (
	"fmt"
	"strings"
	"sync"
)

// Device is a single physical logger. Identity is the platform ID; never
// hand out a copy of a Device that bypasses Mu — the mutex is the single
// authoritative owner gate described in spec §4.7.
type Device struct {
	ID             int64
	LookupID       int64
	Model          string
	Channels       []Channel
	channelIDByTag map[string]int64

	Schedule *Schedule

	// Mu guards Schedule, Channels and channelIDByTag for the lifetime of a
	// single fetch attempt. Lock order is device mutex -> heap mutex; never
	// the reverse (spec §5).
	Mu sync.Mutex
}

// ErrUnknownModel is returned when constructing a Device for a model not
// present in ChannelTagsByModel.
type ErrUnknownModel struct{ Model string }

func (e ErrUnknownModel) Error() string {
	return fmt.Sprintf("unknown device model: %q", e.Model)
}

// NewDevice constructs a Device from a platform device record. Construction
// fails loudly for unknown models (spec §4.5, §7).
func NewDevice(rec DeviceRecord, dueAt int64) (*Device, error) {
	model := strings.ToUpper(rec.Tag)
	if _, ok := ChannelTagsByModel[model]; !ok {
		return nil, ErrUnknownModel{Model: rec.Tag}
	}

	channels := make([]Channel, 0, len(rec.Channels))
	byTag := make(map[string]int64, len(rec.Channels))
	for _, c := range rec.Channels {
		channels = append(channels, Channel{ID: c.ID, Tag: c.Tag})
		byTag[c.Tag] = c.ID
	}

	return &Device{
		ID:             rec.ID,
		LookupID:       rec.LookupID,
		Model:          model,
		Channels:       channels,
		channelIDByTag: byTag,
		Schedule:       NewSchedule(rec.LastSeen, dueAt),
	}, nil
}

// ChannelTags returns the ordered set of tags this device's model emits.
func (d *Device) ChannelTags() []string {
	return ChannelTagsByModel[d.Model]
}

// ChannelID looks up a channel's platform ID by tag. Must be called with
// Mu held.
func (d *Device) ChannelID(tag string) (int64, bool) {
	id, ok := d.channelIDByTag[tag]
	return id, ok
}

// AddChannel registers a newly discovered-or-created channel. Must be
// called with Mu held. Idempotent: re-adding an existing tag is a no-op
// other than refreshing its ID, preserving the channel-uniqueness
// invariant (spec §8).
func (d *Device) AddChannel(id int64, tag string) {
	if _, exists := d.channelIDByTag[tag]; !exists {
		d.Channels = append(d.Channels, Channel{ID: id, Tag: tag})
	}
	d.channelIDByTag[tag] = id
}
