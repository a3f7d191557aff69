package database

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cashback-dashboard/internal/models"
)

func (s *Store) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	return s.db.WithContext(ctx).Create(w).Error
}

func (s *Store) WithdrawalByID(ctx context.Context, id uint) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := s.db.WithContext(ctx).First(&w, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) ListWithdrawals(ctx context.Context, userID uint) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&out).Error
	return out, err
}

// ListWithdrawalsByStatus lists every user's withdrawals, oldest first. An
// empty status lists all of them.
func (s *Store) ListWithdrawalsByStatus(ctx context.Context, status string) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	q := s.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("id").Find(&out).Error
	return out, err
}

func (s *Store) SumWithdrawals(ctx context.Context, userID uint, statuses ...string) (decimal.Decimal, error) {
	var total sum
	err := s.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND status IN ?", userID, statuses).
		Scan(&total).Error
	return total.Total, err
}

// TransitionWithdrawal applies fields only while the withdrawal is still in
// one of the from states, and reports whether it did.
func (s *Store) TransitionWithdrawal(ctx context.Context, id uint, from []string, fields map[string]any) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}
