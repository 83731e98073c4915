package stream

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ctx, cancel := context.WithCancel(t.Context())

	first := h.Subscribe(ctx, 1)
	second := h.Subscribe(t.Context(), 1)
	assert.Equal(t, 2, h.Subscribers(1))

	n := entity.DesktopNotification{ID: "n-1", Title: "Upcoming events", EventIDs: []int64{4}}
	assert.Equal(t, 2, h.Publish(1, n))
	assert.Equal(t, 0, h.Publish(2, n))

	assert.Equal(t, n, <-first)
	assert.Equal(t, n, <-second)

	cancel()
	select {
	case _, ok := <-first:
		assert.False(t, ok)
	case <-time.After(time.Second):
		require.Fail(t, "stream was not closed after cancel")
	}

	assert.Eventually(t, func() bool { return h.Subscribers(1) == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_PublishDoesNotBlockOnFullBuffer(t *testing.T) {
	t.Parallel()

	h := NewHub()
	_ = h.Subscribe(t.Context(), 7)

	for range bufferSize {
		assert.Equal(t, 1, h.Publish(7, entity.DesktopNotification{}))
	}
	assert.Equal(t, 0, h.Publish(7, entity.DesktopNotification{}))
}
