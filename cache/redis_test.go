package cache

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KDVMan/candlechart/market"
	"github.com/KDVMan/candlechart/window"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKeepsNaN(t *testing.T) {
	cs := []market.Candle{
		{TimeOpen: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 7},
		{TimeOpen: 2, Open: math.NaN(), High: 2, Low: 0.5, Close: 1.5, Volume: math.Inf(1)},
	}
	data, err := encode(cs)
	require.NoError(t, err)

	got, err := decode(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, cs[0], got[0])
	assert.True(t, math.IsNaN(got[1].Open))
	assert.True(t, math.IsNaN(got[1].Volume))
	assert.Equal(t, 2.0, got[1].High)
}

func unreachable() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestFallsBackWhenRedisIsDown(t *testing.T) {
	client := unreachable()
	t.Cleanup(func() { _ = client.Close() })

	var calls atomic.Int32
	next := window.FetcherFunc(func(_ context.Context, _ window.Direction, end int64) ([]market.Candle, error) {
		calls.Add(1)
		return []market.Candle{{TimeOpen: end, Open: 1, High: 1, Low: 1, Close: 1}}, nil
	})

	var logs bytes.Buffer
	c := New(client, next, Options{Prefix: "test:"}, log.New(&logs, "", 0))

	cs, err := c.Fetch(context.Background(), window.Backward, 42)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, int64(42), cs[0].TimeOpen)
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, logs.String(), "cache: get test:block:42")
	assert.Contains(t, logs.String(), "cache: set test:block:42")
}

func TestUpstreamErrorPassesThrough(t *testing.T) {
	client := unreachable()
	t.Cleanup(func() { _ = client.Close() })

	boom := errors.New("upstream down")
	next := window.FetcherFunc(func(context.Context, window.Direction, int64) ([]market.Candle, error) {
		return nil, boom
	})
	c := New(client, next, Options{}, log.New(&bytes.Buffer{}, "", 0))

	_, err := c.Fetch(context.Background(), window.Forward, 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "candlechart:block:7", c.key(7))
	assert.Equal(t, DefaultTTL, c.ttl)
}
