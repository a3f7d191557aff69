package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"cashback-dashboard/internal/models"
	"cashback-dashboard/internal/referral"
)

var (
	ErrUnknownBroker     = errors.New("unknown broker")
	ErrBrokerUnavailable = errors.New("broker is not accepting new accounts")
	ErrAccountTaken      = errors.New("trading account is already linked")
	ErrInvalidAccount    = errors.New("account number is required")
)

type Store interface {
	BrokerByName(ctx context.Context, name string) (*models.Broker, error)
	CreateAccount(ctx context.Context, account *models.TradingAccount) (bool, error)
	AccountByNumber(ctx context.Context, brokerName, accountNumber string) (*models.TradingAccount, error)
	MarkConnected(ctx context.Context, id uint, at time.Time) (bool, error)
	CountConnected(ctx context.Context, userID uint) (int64, error)
	ListAccounts(ctx context.Context, userID uint) ([]models.TradingAccount, error)
}

type Verifier interface {
	VerifyAccount(ctx context.Context, brokerName, accountNumber string) (bool, error)
}

type Activator interface {
	Activate(ctx context.Context, userID uint) referral.ActivationResult
}

type Service struct {
	store     Store
	verifier  Verifier
	activator Activator
	logger    *zap.Logger
	nowFn     func() time.Time
}

// NewService accepts a nil verifier; accounts then stay pending until verified later.
func NewService(store Store, verifier Verifier, activator Activator, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		verifier:  verifier,
		activator: activator,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// Link attaches a broker account to the user. Relinking an own pending
// account re-runs verification.
func (s *Service) Link(ctx context.Context, userID uint, brokerName, accountNumber string) (*models.TradingAccount, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, ErrInvalidAccount
	}
	broker, err := s.store.BrokerByName(ctx, brokerName)
	if err != nil {
		return nil, fmt.Errorf("find broker: %w", err)
	}
	if broker == nil {
		return nil, ErrUnknownBroker
	}
	if !broker.Open() {
		return nil, ErrBrokerUnavailable
	}

	account := &models.TradingAccount{
		UserID:        userID,
		BrokerName:    broker.Name,
		AccountNumber: accountNumber,
		Status:        models.AccountStatusPending,
	}
	created, err := s.store.CreateAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	if !created {
		existing, err := s.store.AccountByNumber(ctx, broker.Name, accountNumber)
		if err != nil {
			return nil, fmt.Errorf("find account: %w", err)
		}
		if existing == nil || existing.UserID != userID {
			return nil, ErrAccountTaken
		}
		if existing.Status == models.AccountStatusConnected {
			return existing, nil
		}
		account = existing
	}

	if err := s.verify(ctx, account); err != nil {
		s.logger.Warn("Account verification failed",
			zap.Uint("account_id", account.ID),
			zap.String("broker", account.BrokerName),
			zap.Error(err))
	}
	return account, nil
}

func (s *Service) verify(ctx context.Context, account *models.TradingAccount) error {
	if s.verifier == nil {
		return nil
	}
	ok, err := s.verifier.VerifyAccount(ctx, account.BrokerName, account.AccountNumber)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return s.connect(ctx, account)
}

func (s *Service) connect(ctx context.Context, account *models.TradingAccount) error {
	before, err := s.store.CountConnected(ctx, account.UserID)
	if err != nil {
		return fmt.Errorf("count connected accounts: %w", err)
	}

	now := s.nowFn().UTC()
	changed, err := s.store.MarkConnected(ctx, account.ID, now)
	if err != nil {
		return fmt.Errorf("mark connected: %w", err)
	}
	account.Status = models.AccountStatusConnected
	account.ConnectedAt = &now
	if !changed {
		return nil
	}

	s.logger.Info("Trading account connected",
		zap.Uint("user_id", account.UserID),
		zap.Uint("account_id", account.ID),
		zap.String("broker", account.BrokerName))

	if before == 0 {
		// Failures are logged by the recorder and must not fail linking.
		s.activator.Activate(ctx, account.UserID)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID uint) ([]models.TradingAccount, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}
