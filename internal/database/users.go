package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cashback-dashboard/internal/models"
	"cashback-dashboard/internal/referral"
)

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.firstUser(ctx, "id = ?", id)
}

func (s *Store) UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.firstUser(ctx, "telegram_id = ?", telegramID)
}

func (s *Store) UserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.firstUser(ctx, "referral_code = ?", code)
}

func (s *Store) firstUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser fills in the role and a fresh referral code when missing.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.ReferralCode == "" {
		user.ReferralCode = referral.NewCode()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindOrCreateTelegramUser reports whether the user was created by this call.
func (s *Store) FindOrCreateTelegramUser(ctx context.Context, telegramID int64, username string) (*models.User, bool, error) {
	user, err := s.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		return user, false, nil
	}

	user = &models.User{TelegramID: &telegramID, Username: username}
	if err := s.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent /start.
		if existing, lookupErr := s.UserByTelegramID(ctx, telegramID); lookupErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return user, true, nil
}
