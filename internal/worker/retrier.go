package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cashback-dashboard/internal/referral"
)

type RetrySource interface {
	Pop(ctx context.Context) (referral.RetryItem, bool, error)
}

type Redeliverer interface {
	Redeliver(ctx context.Context, item referral.RetryItem) referral.SettleResult
}

// Retrier drains the settlement retry queue on a fixed interval.
type Retrier struct {
	queue    RetrySource
	recorder Redeliverer
	interval time.Duration
	batch    int
	logger   *zap.Logger
}

func NewRetrier(queue RetrySource, recorder Redeliverer, interval time.Duration, logger *zap.Logger) *Retrier {
	return &Retrier{
		queue:    queue,
		recorder: recorder,
		interval: interval,
		batch:    100,
		logger:   logger,
	}
}

func (r *Retrier) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.logger.Info("Settlement retry worker started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

// drain handles at most one batch so items re-queued during this pass wait
// for the next tick.
func (r *Retrier) drain(ctx context.Context) int {
	handled := 0
	for handled < r.batch {
		item, ok, err := r.queue.Pop(ctx)
		if err != nil {
			r.logger.Error("Failed to read settlement retry queue", zap.Error(err))
			break
		}
		if !ok {
			break
		}
		handled++

		res := r.recorder.Redeliver(ctx, item)
		r.logger.Info("Settlement retried",
			zap.Uint("trade_id", item.Input.TradeID),
			zap.Int("attempt", item.Attempts+1),
			zap.String("outcome", string(res.Outcome)))
	}
	return handled
}
