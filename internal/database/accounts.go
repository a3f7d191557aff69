package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cashback-dashboard/internal/models"
)

func (s *Store) HasConnectedAccount(ctx context.Context, userID uint) (bool, error) {
	n, err := s.CountConnected(ctx, userID)
	return n > 0, err
}

func (s *Store) CountConnected(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.TradingAccount{}).
		Where("user_id = ? AND status = ?", userID, models.AccountStatusConnected).
		Count(&n).Error
	return n, err
}

// CreateAccount reports false when the broker account number is already linked.
func (s *Store) CreateAccount(ctx context.Context, account *models.TradingAccount) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "broker_name"}, {Name: "account_number"}},
			DoNothing: true,
		}).
		Create(account)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) AccountByNumber(ctx context.Context, brokerName, accountNumber string) (*models.TradingAccount, error) {
	var account models.TradingAccount
	err := s.db.WithContext(ctx).
		Where("broker_name = ? AND account_number = ?", brokerName, accountNumber).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// MarkConnected reports false when the account was already connected.
func (s *Store) MarkConnected(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.TradingAccount{}).
		Where("id = ? AND status = ?", id, models.AccountStatusPending).
		Updates(map[string]any{"status": models.AccountStatusConnected, "connected_at": at})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) ListAccounts(ctx context.Context, userID uint) ([]models.TradingAccount, error) {
	var accounts []models.TradingAccount
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&accounts).Error
	return accounts, err
}

// SyncableAccounts lists connected accounts whose broker is open.
func (s *Store) SyncableAccounts(ctx context.Context) ([]models.TradingAccount, error) {
	var accounts []models.TradingAccount
	err := s.db.WithContext(ctx).
		Joins("JOIN brokers ON brokers.name = trading_accounts.broker_name").
		Where("trading_accounts.status = ? AND brokers.available = ? AND brokers.maintenance = ?",
			models.AccountStatusConnected, true, false).
		Order("trading_accounts.id").
		Find(&accounts).Error
	return accounts, err
}

func (s *Store) MarkSynced(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.TradingAccount{}).
		Where("id = ?", id).
		Update("last_synced_at", at).Error
}
