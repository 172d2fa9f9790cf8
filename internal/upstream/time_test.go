package upstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRequestTimeIsUTCMinutePrecision(t *testing.T) {
	epoch := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC).Unix()
	assert.Equal(t, "2026-03-01 12:30", formatRequestTime(epoch))
}
