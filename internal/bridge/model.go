package bridge

import "strings"

// Sample is one raw reading as returned by the upstream API: at least a
// "Time" field (ISO-8601 string) plus one value per channel tag, and
// optionally "Battery Voltage" and "signalStrength".
type Sample map[string]any

const (
	sampleTimeKey      = "Time"
	sampleBatteryKey   = "Battery Voltage"
	sampleSignalKey    = "signalStrength"
)

// TimeString returns the raw ISO timestamp string of the sample, if present.
func (s Sample) TimeString() (string, bool) {
	v, ok := s[sampleTimeKey].(string)
	return v, ok
}

// Float extracts a numeric field as float64, accepting float64 (what
// encoding/json produces for numbers), int64 and int values. Any other type,
// including json.Number and numeric strings, is reported as absent.
func (s Sample) Float(key string) (float64, bool) {
	v, ok := s[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func (s Sample) Battery() (float64, bool) { return s.Float(sampleBatteryKey) }
func (s Sample) SignalStrength() (float64, bool) { return s.Float(sampleSignalKey) }

// Channel is a single named measurement stream on a Device. Tags are
// unique per device and created lazily on first observation.
type Channel struct {
	ID  int64
	Tag string
}

// ChannelTagsByModel is the compile-time Model -> ordered channel tag set.
// Device construction fails for any model not present here.
var ChannelTagsByModel = map[string][]string{
	"IOTSU_N3_AQ05":   {"CO2", "Humidity", "Temperature"},
	"IOTSU_N3_RHTEMP": {"Humidity", "Temperature"},
}

// unitByTag resolves the downstream unit used only when a new channel is
// created; tags without a known unit use the tag itself.
var unitByTag = map[string]string{
	"TEMPERATURE": "°C",
	"HUMIDITY":    "%RH",
	"CO2":         "CO2",
}

// ResolveUnit returns the downstream unit for a channel tag.
func ResolveUnit(tag string) string {
	if u, ok := unitByTag[strings.ToUpper(tag)]; ok {
		return u
	}
	return tag
}

// SignalType is the link-layer signal-type constant carried on every
// Output Batch. NB-IoT is the only transport these devices use.
type SignalType string

const SignalTypeNBIoT SignalType = "NB_IOT"

// OutputSample is one (channel, value, timestamp) triple inside a batch.
type OutputSample struct {
	ChannelID int64
	Value     float64
	Timestamp int64
}

// SignalSample is one (timestamp, signal strength) reading inside a batch.
type SignalSample struct {
	Timestamp int64
	Value     float64
}

// OutputBatch is what the core emits per successful fetch.
type OutputBatch struct {
	DeviceID   int64
	LastSeen   int64
	SignalType SignalType
	Samples    []OutputSample
	Signals    []SignalSample
	Battery    *float64
}

// DeviceRecord is the platform's wire representation of a device, as
// returned by Platform.ListDevices.
type DeviceRecord struct {
	ID        int64
	LookupID  int64
	Tag       string // model
	LastSeen  int64
	Channels  []ChannelRecord
}

// ChannelRecord is the platform's wire representation of a channel.
type ChannelRecord struct {
	ID  int64
	Tag string
}
