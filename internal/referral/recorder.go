package referral

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cashback-dashboard/internal/cashback"
	"cashback-dashboard/internal/metrics"
	"cashback-dashboard/internal/models"
)

// PeriodLayout formats the month an earning is attributed to.
const PeriodLayout = "2006-01"

type Outcome string

const (
	OutcomeRecorded       Outcome = "recorded"
	OutcomeNoRelationship Outcome = "no_relationship"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeFailed         Outcome = "failed"
)

// SettlementStore is what the recorder needs from persistence. Relationship
// status is always read from the store, never cached.
type SettlementStore interface {
	ActiveRelationship(ctx context.Context, referredID uint) (*models.ReferralRelationship, error)
	// InsertEarning reports false when an earning for the trade already exists.
	InsertEarning(ctx context.Context, earning *models.ReferralEarning) (bool, error)
	ActivatePending(ctx context.Context, referredID uint, at time.Time) (int64, error)
}

// RetryQueue keeps settlements that failed on persistence so they can be redelivered.
type RetryQueue interface {
	Push(ctx context.Context, item RetryItem) error
}

type SettleInput struct {
	TradeID    uint                `json:"trade_id"`
	UserID     uint                `json:"user_id"`
	BrokerName string              `json:"broker_name"`
	Lots       decimal.Decimal     `json:"lots"`
	Commission decimal.NullDecimal `json:"commission"`
}

type RetryItem struct {
	Input    SettleInput `json:"input"`
	Attempts int         `json:"attempts"`
}

type SettleResult struct {
	Outcome Outcome
	Earning *models.ReferralEarning
	Err     error
}

type ActivationResult struct {
	Activated int64
	Err       error
}

type Recorder struct {
	store       SettlementStore
	calc        *cashback.Calculator
	retry       RetryQueue
	logger      *zap.Logger
	maxAttempts int
	nowFn       func() time.Time
}

type RecorderOption func(*Recorder)

func WithRetryQueue(q RetryQueue, maxAttempts int) RecorderOption {
	return func(r *Recorder) {
		r.retry = q
		r.maxAttempts = maxAttempts
	}
}

func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.nowFn = now
	}
}

func NewRecorder(store SettlementStore, calc *cashback.Calculator, logger *zap.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:       store,
		calc:        calc,
		logger:      logger,
		maxAttempts: 1,
		nowFn:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settle records the referral commission for a newly ingested trade. It never
// returns an error to the caller: failures are logged, counted, queued for
// retry and reported in the result.
func (r *Recorder) Settle(ctx context.Context, in SettleInput) SettleResult {
	res := r.settle(ctx, in)
	if res.Outcome == OutcomeFailed {
		r.retryOrDrop(ctx, RetryItem{Input: in, Attempts: 1}, res.Err)
	}
	return res
}

// Redeliver runs a queued settlement again. item.Attempts counts the tries
// already made, so this run is try Attempts+1.
func (r *Recorder) Redeliver(ctx context.Context, item RetryItem) SettleResult {
	res := r.settle(ctx, item.Input)
	if res.Outcome != OutcomeFailed {
		return res
	}
	item.Attempts++
	r.retryOrDrop(ctx, item, res.Err)
	return res
}

// retryOrDrop queues the item unless it has used up maxAttempts tries.
func (r *Recorder) retryOrDrop(ctx context.Context, item RetryItem, cause error) {
	if r.retry == nil {
		return
	}
	if item.Attempts >= r.maxAttempts {
		r.logger.Error("Dropping settlement after max attempts",
			zap.Uint("trade_id", item.Input.TradeID),
			zap.Int("attempts", item.Attempts),
			zap.Error(cause))
		metrics.SettlementsDropped.Inc()
		return
	}
	r.enqueue(ctx, item)
}

func (r *Recorder) settle(ctx context.Context, in SettleInput) SettleResult {
	rel, err := r.store.ActiveRelationship(ctx, in.UserID)
	if err != nil {
		return r.fail(in, fmt.Errorf("lookup active relationship: %w", err))
	}
	if rel == nil {
		metrics.SettlementsTotal.WithLabelValues(string(OutcomeNoRelationship)).Inc()
		return SettleResult{Outcome: OutcomeNoRelationship}
	}

	rate := r.calc.Config().ReferralRate
	if rel.CommissionRate.Valid {
		rate = rel.CommissionRate.Decimal
	}
	// Match the numeric(6,2) column so the stored rate reproduces the amount.
	rate = rate.Round(2)
	amount := r.calc.Cashback(in.BrokerName, in.Lots, in.Commission)

	earning := &models.ReferralEarning{
		ReferrerID:       rel.ReferrerID,
		ReferredID:       rel.ReferredID,
		TradeID:          in.TradeID,
		CashbackAmount:   amount,
		CommissionRate:   rate,
		CommissionAmount: cashback.Commission(amount, rate),
		Status:           models.EarningPending,
		Period:           r.nowFn().UTC().Format(PeriodLayout),
	}
	created, err := r.store.InsertEarning(ctx, earning)
	if err != nil {
		return r.fail(in, fmt.Errorf("insert referral earning: %w", err))
	}
	if !created {
		metrics.SettlementsTotal.WithLabelValues(string(OutcomeDuplicate)).Inc()
		return SettleResult{Outcome: OutcomeDuplicate}
	}

	metrics.SettlementsTotal.WithLabelValues(string(OutcomeRecorded)).Inc()
	r.logger.Info("Referral earning recorded",
		zap.Uint("trade_id", in.TradeID),
		zap.Uint("referrer_id", earning.ReferrerID),
		zap.String("commission", earning.CommissionAmount.String()))
	return SettleResult{Outcome: OutcomeRecorded, Earning: earning}
}

func (r *Recorder) fail(in SettleInput, err error) SettleResult {
	metrics.SettlementsTotal.WithLabelValues(string(OutcomeFailed)).Inc()
	r.logger.Error("Referral settlement failed",
		zap.Uint("trade_id", in.TradeID),
		zap.Uint("user_id", in.UserID),
		zap.Error(err))
	return SettleResult{Outcome: OutcomeFailed, Err: err}
}

func (r *Recorder) enqueue(ctx context.Context, item RetryItem) {
	if r.retry == nil {
		return
	}
	if err := r.retry.Push(ctx, item); err != nil {
		r.logger.Error("Failed to queue settlement retry",
			zap.Uint("trade_id", item.Input.TradeID),
			zap.Error(err))
		metrics.SettlementsDropped.Inc()
	}
}

// Activate moves the user's pending relationships to active. It is called by
// the account-linking flow when the user's first trading account connects.
// Errors are logged and returned in the result, never to the caller's flow.
func (r *Recorder) Activate(ctx context.Context, userID uint) ActivationResult {
	n, err := r.store.ActivatePending(ctx, userID, r.nowFn().UTC())
	if err != nil {
		metrics.ActivationsTotal.WithLabelValues("failed").Inc()
		r.logger.Error("Referral activation failed", zap.Uint("user_id", userID), zap.Error(err))
		return ActivationResult{Err: err}
	}
	if n > 0 {
		metrics.ActivationsTotal.WithLabelValues("activated").Inc()
		r.logger.Info("Referral relationship activated", zap.Uint("user_id", userID))
	}
	return ActivationResult{Activated: n}
}
