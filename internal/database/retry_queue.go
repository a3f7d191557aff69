package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cashback-dashboard/internal/referral"
)

const settlementRetryKey = "settlement:retry"

// RetryQueue is a FIFO list of failed settlements kept in Redis.
type RetryQueue struct {
	rdb *redis.Client
	key string
}

func NewRetryQueue(rdb *redis.Client) *RetryQueue {
	return &RetryQueue{rdb: rdb, key: settlementRetryKey}
}

func (q *RetryQueue) Push(ctx context.Context, item referral.RetryItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal retry item: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to push retry item: %w", err)
	}
	return nil
}

// Pop returns the oldest item, or false when the queue is empty.
func (q *RetryQueue) Pop(ctx context.Context) (referral.RetryItem, bool, error) {
	var item referral.RetryItem
	payload, err := q.rdb.RPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return item, false, nil
	}
	if err != nil {
		return item, false, fmt.Errorf("failed to pop retry item: %w", err)
	}
	if err := json.Unmarshal(payload, &item); err != nil {
		return item, false, fmt.Errorf("corrupt retry item %q: %w", payload, err)
	}
	return item, true, nil
}

func (q *RetryQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
