package bridge

import "time"

// upstreamTimeLayout is the ISO-8601 minute-precision layout the upstream
// API uses for sample timestamps, assumed UTC (spec §9 open question).
const upstreamTimeLayout = "2006-01-02T15:04Z"

// parseUpstreamTime parses a sample's ISO timestamp string into epoch
// seconds. Accepts either second or minute precision.
func parseUpstreamTime(s string) (int64, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	t, err := time.Parse(upstreamTimeLayout, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
