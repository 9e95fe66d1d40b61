package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zllovesuki/subpulse/customer"
	"github.com/zllovesuki/subpulse/subscription"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSource struct {
	customers []customer.Customer
	err       error
	calls     int
}

func (c *countingSource) Customers(ctx context.Context, start, end time.Time) ([]customer.Customer, error) {
	c.calls++
	return c.customers, c.err
}

func snapshot() []customer.Customer {
	return []customer.Customer{
		{
			ID:       "cus_1",
			Email:    "ada@startup.io",
			Created:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Metadata: map[string]string{"channel": "self-service"},
			Subscriptions: []subscription.Subscription{
				{
					ID:            "sub_1",
					CustomerID:    "cus_1",
					Status:        subscription.StatusActive,
					StartedAt:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
					PlanID:        "plan_pro",
					Amount:        2900,
					Currency:      "usd",
					Interval:      subscription.IntervalMonth,
					IntervalCount: 1,
				},
			},
		},
	}
}

func newTestCache(t *testing.T, upstream *countingSource) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
	})

	c, err := NewCache(CacheOptions{
		Source: upstream,
		Redis:  client,
		Logger: zap.NewNop(),
		TTL:    time.Minute,
	})
	require.NoError(t, err)
	return c, mr
}

func TestCacheServesSnapshotUntilExpiry(t *testing.T) {
	upstream := &countingSource{customers: snapshot()}
	c, mr := newTestCache(t, upstream)
	ctx := context.Background()
	start := time.Unix(0, 0)

	first, err := c.Customers(ctx, start, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)
	assert.True(t, mr.Exists(cacheKey(start)))

	second, err := c.Customers(ctx, start, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)

	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].Metadata, second[0].Metadata)
	require.Len(t, second[0].Subscriptions, 1)
	assert.Equal(t, int64(2900), second[0].Subscriptions[0].Amount)
	assert.True(t, first[0].Subscriptions[0].StartedAt.Equal(second[0].Subscriptions[0].StartedAt))

	mr.FastForward(2 * time.Minute)

	_, err = c.Customers(ctx, start, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	upstream := &countingSource{err: errors.New("stripe is down")}
	c, mr := newTestCache(t, upstream)
	start := time.Unix(0, 0)

	_, err := c.Customers(context.Background(), start, time.Now())
	assert.Error(t, err)
	assert.False(t, mr.Exists(cacheKey(start)))
}

func TestCacheFallsThroughWhenRedisIsDown(t *testing.T) {
	upstream := &countingSource{customers: snapshot()}
	c, mr := newTestCache(t, upstream)
	mr.Close()

	customers, err := c.Customers(context.Background(), time.Unix(0, 0), time.Now())
	require.NoError(t, err)
	assert.Len(t, customers, 1)
	assert.Equal(t, 1, upstream.calls)
}

func TestCacheInvalidate(t *testing.T) {
	upstream := &countingSource{customers: snapshot()}
	c, _ := newTestCache(t, upstream)
	ctx := context.Background()
	start := time.Unix(0, 0)

	_, err := c.Customers(ctx, start, time.Now())
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, start))

	_, err = c.Customers(ctx, start, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}
