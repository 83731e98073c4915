package goroutine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CollectsErrors(t *testing.T) {
	t.Parallel()

	m := NewManager(2)
	ctx := context.Background()

	require.True(t, m.Go(ctx, "ok", func(context.Context) error { return nil }))
	require.True(t, m.Go(ctx, "broken", func(context.Context) error { return errors.New("consumer stopped") }))

	err := m.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: consumer stopped")
}

func TestManager_RecoversPanic(t *testing.T) {
	t.Parallel()

	m := NewManager(1)
	require.True(t, m.Go(context.Background(), "panicky", func(context.Context) error { panic("boom") }))

	err := m.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: boom")
}

func TestManager_RejectsWhenFullOrClosed(t *testing.T) {
	t.Parallel()

	m := NewManager(1)
	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, m.Go(context.Background(), "blocker", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	assert.False(t, m.Go(context.Background(), "extra", func(context.Context) error { return nil }))

	close(release)
	require.NoError(t, m.Wait())
	assert.False(t, m.Go(context.Background(), "late", func(context.Context) error { return nil }))
}

func TestManager_IgnoresCancellation(t *testing.T) {
	t.Parallel()

	m := NewManager(1)
	require.True(t, m.Go(context.Background(), "consumer", func(context.Context) error { return context.Canceled }))
	require.NoError(t, m.Wait())
}
