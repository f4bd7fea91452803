//go:build integration

package quota

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ligustah/mapleads/internal/testutils"
)

func TestTrackerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	t.Run("redis", func(t *testing.T) {
		env := testutils.StartRedisContainer(t, ctx)
		defer env.Close(ctx)

		client := redis.NewClient(&redis.Options{Addr: env.Addr})
		defer client.Close()

		exerciseTracker(t, ctx, NewRedisStore(client, "mapleads:"))

		v, err := client.Get(ctx, "mapleads:"+DefaultKey).Result()
		require.NoError(t, err)
		assert.Equal(t, "3", v)
	})

	t.Run("s3", func(t *testing.T) {
		env := testutils.StartMinioContainer(t, ctx, "mapleads-state")
		defer env.Close(ctx)

		bkt, err := env.OpenBucket(ctx, "mapleads-state")
		require.NoError(t, err)
		defer bkt.Close()

		exerciseTracker(t, ctx, NewBlobStore(bkt))

		data, err := bkt.ReadAll(ctx, DefaultKey)
		require.NoError(t, err)
		assert.Equal(t, "3", string(data))
	})
}

// exerciseTracker consumes the whole quota, refunds once and resets.
func exerciseTracker(t *testing.T, ctx context.Context, store Store) {
	t.Helper()

	tr := NewTracker(store)
	n, err := tr.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRuns, n)

	for i := 0; i < DefaultMaxRuns; i++ {
		ok, err := tr.Consume(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := tr.Consume(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, tr.IsExhausted())

	require.NoError(t, tr.Restore(ctx))

	reloaded := NewTracker(store)
	n, err = reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, reloaded.Reset(ctx))
}
