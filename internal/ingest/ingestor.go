package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cashback-dashboard/internal/metrics"
	"cashback-dashboard/internal/models"
	"cashback-dashboard/internal/referral"
)

var (
	ErrInvalidEvent   = errors.New("invalid trade event")
	ErrUnknownAccount = errors.New("unknown trading account")
)

// TradeEvent is one closed trade as reported by a broker.
type TradeEvent struct {
	Source        string              `json:"source,omitempty"`
	BrokerName    string              `json:"broker_name"`
	AccountNumber string              `json:"account_number"`
	Ticket        string              `json:"ticket"`
	Symbol        string              `json:"symbol"`
	Lots          decimal.Decimal     `json:"lots"`
	Commission    decimal.NullDecimal `json:"commission"`
	Profit        decimal.Decimal     `json:"profit"`
	OpenTime      time.Time           `json:"open_time"`
	CloseTime     time.Time           `json:"close_time"`
}

func (e TradeEvent) Validate() error {
	switch {
	case strings.TrimSpace(e.BrokerName) == "":
		return fmt.Errorf("%w: broker_name is required", ErrInvalidEvent)
	case strings.TrimSpace(e.AccountNumber) == "":
		return fmt.Errorf("%w: account_number is required", ErrInvalidEvent)
	case strings.TrimSpace(e.Ticket) == "":
		return fmt.Errorf("%w: ticket is required", ErrInvalidEvent)
	case e.Lots.IsNegative():
		return fmt.Errorf("%w: lots must not be negative", ErrInvalidEvent)
	case e.Commission.Valid && e.Commission.Decimal.IsNegative():
		return fmt.Errorf("%w: commission must not be negative", ErrInvalidEvent)
	}
	return nil
}

type Store interface {
	AccountByNumber(ctx context.Context, brokerName, accountNumber string) (*models.TradingAccount, error)
	UpsertTrade(ctx context.Context, trade *models.Trade) (bool, error)
}

type Settler interface {
	Settle(ctx context.Context, in referral.SettleInput) referral.SettleResult
}

type EarningNotifier interface {
	NotifyEarning(ctx context.Context, earning *models.ReferralEarning) error
}

type Result struct {
	TradeID    uint
	Created    bool
	Settlement referral.SettleResult
}

type Ingestor struct {
	store    Store
	settler  Settler
	notifier EarningNotifier
	logger   *zap.Logger
}

// NewIngestor accepts a nil notifier.
func NewIngestor(store Store, settler Settler, notifier EarningNotifier, logger *zap.Logger) *Ingestor {
	return &Ingestor{store: store, settler: settler, notifier: notifier, logger: logger}
}

// Ingest stores the trade and settles referral commission for it. Replays of
// a known trade settle again and come back as duplicates once the earning
// exists. A failed settlement never fails ingestion.
func (i *Ingestor) Ingest(ctx context.Context, ev TradeEvent) (Result, error) {
	source := ev.Source
	if source == "" {
		source = "unknown"
	}
	res, err := i.ingest(ctx, ev)
	switch {
	case err != nil:
		metrics.TradesIngested.WithLabelValues(source, "error").Inc()
	case res.Created:
		metrics.TradesIngested.WithLabelValues(source, "created").Inc()
	default:
		metrics.TradesIngested.WithLabelValues(source, "replay").Inc()
	}
	return res, err
}

func (i *Ingestor) ingest(ctx context.Context, ev TradeEvent) (Result, error) {
	if err := ev.Validate(); err != nil {
		return Result{}, err
	}

	account, err := i.store.AccountByNumber(ctx, ev.BrokerName, ev.AccountNumber)
	if err != nil {
		return Result{}, fmt.Errorf("find trading account: %w", err)
	}
	if account == nil {
		return Result{}, fmt.Errorf("%w: %s/%s", ErrUnknownAccount, ev.BrokerName, ev.AccountNumber)
	}

	trade := &models.Trade{
		TradingAccountID: account.ID,
		Ticket:           ev.Ticket,
		Symbol:           ev.Symbol,
		Lots:             ev.Lots,
		Commission:       ev.Commission,
		Profit:           ev.Profit,
		OpenTime:         ev.OpenTime.UTC(),
		CloseTime:        ev.CloseTime.UTC(),
	}
	created, err := i.store.UpsertTrade(ctx, trade)
	if err != nil {
		return Result{}, fmt.Errorf("store trade: %w", err)
	}

	// Replays settle again: a crash after the upsert would otherwise lose the
	// earning, and the recorder treats an existing earning as a duplicate.
	settlement := i.settler.Settle(ctx, referral.SettleInput{
		TradeID:    trade.ID,
		UserID:     account.UserID,
		BrokerName: account.BrokerName,
		Lots:       trade.Lots,
		Commission: trade.Commission,
	})
	if settlement.Outcome == referral.OutcomeRecorded && i.notifier != nil {
		if err := i.notifier.NotifyEarning(ctx, settlement.Earning); err != nil {
			i.logger.Warn("Failed to notify referrer",
				zap.Uint("referrer_id", settlement.Earning.ReferrerID),
				zap.Error(err))
		}
	}

	return Result{TradeID: trade.ID, Created: created, Settlement: settlement}, nil
}
