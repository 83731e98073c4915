package strcase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLowerSnake(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":              "",
		"Channel":       "channel",
		"LookaheadDays": "lookahead_days",
		"CompanyIDs":    "company_ids",
		"EventID":       "event_id",
		"HTTPServer":    "http_server",
		"DeviceToken":   "device_token",
		"Since2Days":    "since2_days",
	}

	for in, want := range tests {
		assert.Equal(t, want, ToLowerSnake(in), in)
	}
}
