package sources

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/medgraph/types"
)

type countingClient struct {
	calls  atomic.Int32
	result *types.RawSourceResult
}

func (c *countingClient) Retrieve(ctx context.Context, question, mode string, topK int) (*types.RawSourceResult, error) {
	c.calls.Add(1)
	return c.result, nil
}

func newCacheFixture(t *testing.T) (*countingClient, *CachedSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingClient{result: &types.RawSourceResult{
		Answer:         "cached answer",
		Context:        []string{"line one", "line two"},
		RetrievalCount: 2,
	}}
	return inner, NewCachedSource(inner, client, "", time.Minute, nil), mr
}

func TestCachedSource_HitSkipsInner(t *testing.T) {
	t.Parallel()

	inner, cached, _ := newCacheFixture(t)
	ctx := context.Background()

	first, err := cached.Retrieve(ctx, "what is insulin", "local", 5)
	require.NoError(t, err)
	second, err := cached.Retrieve(ctx, "what is insulin", "local", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedSource_DistinctParamsMiss(t *testing.T) {
	t.Parallel()

	inner, cached, _ := newCacheFixture(t)
	ctx := context.Background()

	_, err := cached.Retrieve(ctx, "what is insulin", "local", 5)
	require.NoError(t, err)
	_, err = cached.Retrieve(ctx, "what is insulin", "local", 10)
	require.NoError(t, err)
	_, err = cached.Retrieve(ctx, "what is insulin", "global", 5)
	require.NoError(t, err)

	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestCachedSource_ExpiryRefetches(t *testing.T) {
	t.Parallel()

	inner, cached, mr := newCacheFixture(t)
	ctx := context.Background()

	_, err := cached.Retrieve(ctx, "q", "local", 5)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cached.Retrieve(ctx, "q", "local", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedSource_RedisDownDegrades(t *testing.T) {
	t.Parallel()

	inner, cached, mr := newCacheFixture(t)
	mr.Close()

	res, err := cached.Retrieve(context.Background(), "q", "local", 5)
	require.NoError(t, err)
	assert.Equal(t, "cached answer", res.Answer)
	assert.Equal(t, int32(1), inner.calls.Load())
}
