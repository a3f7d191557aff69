package wallet

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"cashback-dashboard/internal/cashback"
	"cashback-dashboard/internal/models"
)

type Balance struct {
	CashbackTotal decimal.Decimal `json:"cashback_total"`
	Withdrawn     decimal.Decimal `json:"withdrawn"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Available     decimal.Decimal `json:"available"`
	// Requestable is what a new withdrawal may still ask for once pending and
	// processing requests are set aside.
	Requestable decimal.Decimal `json:"requestable"`
}

// TradeView is a trade with its cashback, recomputed on every read.
type TradeView struct {
	models.TradeRow
	Cashback decimal.Decimal `json:"cashback"`
}

func (s *Service) Trades(ctx context.Context, userID uint) ([]TradeView, error) {
	rows, err := s.store.UserTrades(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	views := make([]TradeView, 0, len(rows))
	for _, row := range rows {
		views = append(views, TradeView{
			TradeRow: row,
			Cashback: s.calc.Cashback(row.BrokerName, row.Lots, row.Commission),
		})
	}
	return views, nil
}

func (s *Service) Balance(ctx context.Context, userID uint) (Balance, error) {
	trades, err := s.Trades(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.Cashback)
	}

	withdrawn, err := s.store.SumWithdrawals(ctx, userID, models.WithdrawalCompleted)
	if err != nil {
		return Balance{}, fmt.Errorf("sum completed withdrawals: %w", err)
	}
	outstanding, err := s.store.SumWithdrawals(ctx, userID, models.WithdrawalPending, models.WithdrawalProcessing)
	if err != nil {
		return Balance{}, fmt.Errorf("sum outstanding withdrawals: %w", err)
	}

	available := cashback.AvailableBalance(total, withdrawn)
	return Balance{
		CashbackTotal: total,
		Withdrawn:     withdrawn,
		Outstanding:   outstanding,
		Available:     available,
		Requestable:   cashback.AvailableBalance(available, outstanding),
	}, nil
}
