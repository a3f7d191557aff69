package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"cashback-dashboard/internal/brokerapi"
	"cashback-dashboard/internal/ingest"
	"cashback-dashboard/internal/models"
)

type SyncStore interface {
	SyncableAccounts(ctx context.Context) ([]models.TradingAccount, error)
	MarkSynced(ctx context.Context, id uint, at time.Time) error
}

type TradeLister interface {
	ListTrades(ctx context.Context, brokerName, accountNumber string, since time.Time) ([]brokerapi.Trade, error)
}

type Ingester interface {
	Ingest(ctx context.Context, ev ingest.TradeEvent) (ingest.Result, error)
}

// Syncer pulls new trades of connected accounts from the broker API.
type Syncer struct {
	store    SyncStore
	broker   TradeLister
	ingestor Ingester
	interval time.Duration
	logger   *zap.Logger
	nowFn    func() time.Time
}

func NewSyncer(store SyncStore, broker TradeLister, ingestor Ingester, interval time.Duration, logger *zap.Logger) *Syncer {
	return &Syncer{
		store:    store,
		broker:   broker,
		ingestor: ingestor,
		interval: interval,
		logger:   logger,
		nowFn:    time.Now,
	}
}

func (s *Syncer) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("Trade sync worker started", zap.Duration("interval", s.interval))

	// Run once at start
	s.syncAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.syncAll(ctx)
		}
	}
}

func (s *Syncer) syncAll(ctx context.Context) {
	accounts, err := s.store.SyncableAccounts(ctx)
	if err != nil {
		s.logger.Error("Error querying syncable accounts", zap.Error(err))
		return
	}
	for i := range accounts {
		if ctx.Err() != nil {
			return
		}
		if err := s.syncAccount(ctx, &accounts[i]); err != nil {
			s.logger.Error("Trade sync failed",
				zap.Uint("account_id", accounts[i].ID),
				zap.String("broker", accounts[i].BrokerName),
				zap.Error(err))
		}
	}
}

// syncAccount only advances the sync watermark when every trade was stored,
// so a failed pass is repeated from the same point.
func (s *Syncer) syncAccount(ctx context.Context, account *models.TradingAccount) error {
	startedAt := s.nowFn().UTC()
	var since time.Time
	if account.LastSyncedAt != nil {
		since = *account.LastSyncedAt
	} else if account.ConnectedAt != nil {
		since = *account.ConnectedAt
	}

	trades, err := s.broker.ListTrades(ctx, account.BrokerName, account.AccountNumber, since)
	if err != nil {
		return err
	}

	created := 0
	for _, t := range trades {
		res, err := s.ingestor.Ingest(ctx, ingest.TradeEvent{
			Source:        "sync",
			BrokerName:    account.BrokerName,
			AccountNumber: account.AccountNumber,
			Ticket:        t.Ticket,
			Symbol:        t.Symbol,
			Lots:          t.Lots,
			Commission:    t.Commission,
			Profit:        t.Profit,
			OpenTime:      t.OpenTime,
			CloseTime:     t.CloseTime,
		})
		if errors.Is(err, ingest.ErrInvalidEvent) {
			s.logger.Warn("Skipping invalid trade from broker", zap.String("ticket", t.Ticket), zap.Error(err))
			continue
		}
		if err != nil {
			return err
		}
		if res.Created {
			created++
		}
	}

	if err := s.store.MarkSynced(ctx, account.ID, startedAt); err != nil {
		return err
	}
	if created > 0 {
		s.logger.Info("Trades synced", zap.Uint("account_id", account.ID), zap.Int("created", created))
	}
	return nil
}
