package runlock

import (
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type counterTokens struct{ n atomic.Int64 }

func (c *counterTokens) Generate() string { return "token-" + strconv.FormatInt(c.n.Add(1), 10) }

func newRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("redis container skipped in -short mode")
	}

	ctr, err := tcredis.Run(t.Context(), "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(t.Context())
	require.NoError(t, err)

	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis_Acquire(t *testing.T) {
	client := newRedis(t)
	locker := New(client, &counterTokens{})
	ctx := t.Context()

	release, err := locker.Acquire(ctx, "dispatch-cycle", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "dispatch-cycle", time.Minute)
	require.ErrorIs(t, err, ErrHeld)

	require.NoError(t, release(ctx))
	require.ErrorIs(t, release(ctx), ErrNotHeld)

	release, err = locker.Acquire(ctx, "dispatch-cycle", time.Minute)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestRedis_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	client := newRedis(t)
	locker := New(client, &counterTokens{})
	ctx := t.Context()

	oldRelease, err := locker.Acquire(ctx, "dispatch-cycle", 50*time.Millisecond)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return client.Exists(ctx, "runlock:dispatch-cycle").Val() == 0
	}, 2*time.Second, 20*time.Millisecond)

	newRelease, err := locker.Acquire(ctx, "dispatch-cycle", time.Minute)
	require.NoError(t, err)

	require.ErrorIs(t, oldRelease(ctx), ErrNotHeld)
	require.NoError(t, newRelease(ctx))
}
