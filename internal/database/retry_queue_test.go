package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashback-dashboard/internal/referral"
)

func newTestQueue(t *testing.T) (*RetryQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRetryQueue(rdb), mr
}

func TestRetryQueueFIFO(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	for i := uint(1); i <= 3; i++ {
		require.NoError(t, q.Push(ctx, referral.RetryItem{
			Input: referral.SettleInput{
				TradeID:    i,
				UserID:     7,
				BrokerName: "XM",
				Lots:       decimal.RequireFromString("1.5"),
				Commission: decimal.NewNullDecimal(decimal.NewFromInt(4)),
			},
			Attempts: 1,
		}))
	}

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	for i := uint(1); i <= 3; i++ {
		item, ok, err := q.Pop(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, item.Input.TradeID)
		assert.True(t, item.Input.Lots.Equal(decimal.RequireFromString("1.5")))
		assert.True(t, item.Input.Commission.Valid)
	}

	_, ok, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetryQueueAbsentCommission(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, referral.RetryItem{Input: referral.SettleInput{TradeID: 9, Lots: decimal.NewFromInt(2)}}))
	item, ok, err := q.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, item.Input.Commission.Valid)
}

func TestRetryQueueCorruptItem(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Lpush(settlementRetryKey, "not json")
	require.NoError(t, err)

	_, ok, err := q.Pop(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
