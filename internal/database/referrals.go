package database

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cashback-dashboard/internal/models"
)

func (s *Store) ActiveRelationship(ctx context.Context, referredID uint) (*models.ReferralRelationship, error) {
	var rel models.ReferralRelationship
	err := s.db.WithContext(ctx).
		Where("referred_id = ? AND status = ?", referredID, models.RelationshipActive).
		First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// InsertEarning relies on the unique index on trade_id; a conflicting insert
// affects no rows and reports false.
func (s *Store) InsertEarning(ctx context.Context, earning *models.ReferralEarning) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "trade_id"}}, DoNothing: true}).
		Create(earning)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ActivatePending(ctx context.Context, referredID uint, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ReferralRelationship{}).
		Where("referred_id = ? AND status = ?", referredID, models.RelationshipPending).
		Updates(map[string]any{"status": models.RelationshipActive, "activated_at": at})
	return res.RowsAffected, res.Error
}

func (s *Store) CreateRelationship(ctx context.Context, rel *models.ReferralRelationship) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "referred_id"}}, DoNothing: true}).
		Create(rel)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) CountRelationships(ctx context.Context, referrerID uint) (int64, int64, error) {
	var invited, active int64
	db := s.db.WithContext(ctx).Model(&models.ReferralRelationship{})
	if err := db.Where("referrer_id = ?", referrerID).Count(&invited).Error; err != nil {
		return 0, 0, err
	}
	err := s.db.WithContext(ctx).Model(&models.ReferralRelationship{}).
		Where("referrer_id = ? AND status = ?", referrerID, models.RelationshipActive).
		Count(&active).Error
	return invited, active, err
}

func (s *Store) SumCommission(ctx context.Context, referrerID uint) (decimal.Decimal, decimal.Decimal, error) {
	var total, pending sum
	err := s.db.WithContext(ctx).Model(&models.ReferralEarning{}).
		Select("COALESCE(SUM(commission_amount), 0) AS total").
		Where("referrer_id = ?", referrerID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	err = s.db.WithContext(ctx).Model(&models.ReferralEarning{}).
		Select("COALESCE(SUM(commission_amount), 0) AS total").
		Where("referrer_id = ? AND status = ?", referrerID, models.EarningPending).
		Scan(&pending).Error
	return total.Total, pending.Total, err
}

func (s *Store) ListEarnings(ctx context.Context, referrerID uint, period string) ([]models.ReferralEarning, error) {
	var earnings []models.ReferralEarning
	q := s.db.WithContext(ctx).Where("referrer_id = ?", referrerID)
	if period != "" {
		q = q.Where("period = ?", period)
	}
	err := q.Order("id DESC").Find(&earnings).Error
	return earnings, err
}

type sum struct {
	Total decimal.Decimal
}
