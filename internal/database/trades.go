package database

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"cashback-dashboard/internal/models"
)

// UpsertTrade inserts a trade once per (account, ticket). On a replay the
// existing id is loaded into trade and false is returned.
func (s *Store) UpsertTrade(ctx context.Context, trade *models.Trade) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trading_account_id"}, {Name: "ticket"}},
			DoNothing: true,
		}).
		Create(trade)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var existing models.Trade
	err := s.db.WithContext(ctx).
		Where("trading_account_id = ? AND ticket = ?", trade.TradingAccountID, trade.Ticket).
		First(&existing).Error
	if err != nil {
		return false, fmt.Errorf("failed to load existing trade: %w", err)
	}
	*trade = existing
	return false, nil
}

// UserTrades returns the user's trades joined with their broker, newest first.
func (s *Store) UserTrades(ctx context.Context, userID uint) ([]models.TradeRow, error) {
	var rows []models.TradeRow
	err := s.db.WithContext(ctx).
		Table("trades").
		Select("trades.*, trading_accounts.user_id, trading_accounts.broker_name").
		Joins("JOIN trading_accounts ON trading_accounts.id = trades.trading_account_id").
		Where("trading_accounts.user_id = ?", userID).
		Order("trades.close_time DESC, trades.id DESC").
		Scan(&rows).Error
	return rows, err
}
