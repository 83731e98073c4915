package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := NewFixed(start)
	assert.Equal(t, start, c.Now())

	c.Advance(36 * time.Hour)
	assert.Equal(t, start.Add(36*time.Hour), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestTimeClockerIn(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("WIB", 7*3600)
	now := NewIn(loc).Now()
	assert.Equal(t, loc, now.Location())
}
