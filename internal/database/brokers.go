package database

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cashback-dashboard/internal/cashback"
	"cashback-dashboard/internal/models"
)

// SeedBrokers makes sure every broker of the rate table exists. Existing rows
// keep their admin-managed flags; only the displayed rate follows the config.
func (s *Store) SeedBrokers(ctx context.Context, cfg cashback.Config, minWithdrawal decimal.Decimal) error {
	names := make([]string, 0, len(cfg.Rates))
	for name := range cfg.Rates {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var broker models.Broker
		err := s.db.WithContext(ctx).
			Where(models.Broker{Name: name}).
			Attrs(models.Broker{MinWithdrawal: minWithdrawal, Available: true}).
			Assign(models.Broker{CashbackRate: cfg.RateFor(name)}).
			FirstOrCreate(&broker).Error
		if err != nil {
			return fmt.Errorf("failed to seed broker %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) ListBrokers(ctx context.Context) ([]models.Broker, error) {
	var brokers []models.Broker
	err := s.db.WithContext(ctx).Order("name").Find(&brokers).Error
	return brokers, err
}

func (s *Store) BrokerByName(ctx context.Context, name string) (*models.Broker, error) {
	var broker models.Broker
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&broker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &broker, nil
}

// UpdateBrokerFlags changes only the flags that are non-nil.
func (s *Store) UpdateBrokerFlags(ctx context.Context, name string, available, maintenance *bool) (*models.Broker, error) {
	updates := map[string]any{}
	if available != nil {
		updates["available"] = *available
	}
	if maintenance != nil {
		updates["maintenance"] = *maintenance
	}
	if len(updates) > 0 {
		err := s.db.WithContext(ctx).Model(&models.Broker{}).Where("name = ?", name).Updates(updates).Error
		if err != nil {
			return nil, fmt.Errorf("failed to update broker %s: %w", name, err)
		}
	}
	return s.BrokerByName(ctx, name)
}
