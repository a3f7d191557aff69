package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cashback-dashboard/internal/cashback"
	"cashback-dashboard/internal/metrics"
	"cashback-dashboard/internal/models"
	"cashback-dashboard/internal/payout"
)

var (
	ErrNotFound               = errors.New("withdrawal not found")
	ErrInvalidTransition      = errors.New("invalid withdrawal status transition")
	ErrInvalidAmount          = errors.New("amount must be positive with at most two decimals")
	ErrDestinationRequired    = errors.New("destination is required")
	ErrUnknownBroker          = errors.New("unknown broker")
	ErrBrokerUnavailable      = errors.New("broker is not accepting withdrawals")
	ErrBelowMinimum           = errors.New("amount is below the broker minimum withdrawal")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrTransactionRefRequired = errors.New("transaction reference is required to complete a withdrawal")
	ErrPayoutFailed           = errors.New("payout provider rejected the withdrawal")
	ErrUnknownStatus          = errors.New("unknown withdrawal status")
	ErrAwaitingApproval       = errors.New("withdrawal has not been approved yet")
)

type Store interface {
	UserTrades(ctx context.Context, userID uint) ([]models.TradeRow, error)
	SumWithdrawals(ctx context.Context, userID uint, statuses ...string) (decimal.Decimal, error)
	BrokerByName(ctx context.Context, name string) (*models.Broker, error)
	CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error
	WithdrawalByID(ctx context.Context, id uint) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, userID uint) ([]models.Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, status string) ([]models.Withdrawal, error)
	TransitionWithdrawal(ctx context.Context, id uint, from []string, fields map[string]any) (bool, error)
}

type Payouter interface {
	CreatePayout(ctx context.Context, r payout.Request) (*payout.Payout, error)
}

type Notifier interface {
	NotifyWithdrawal(ctx context.Context, w *models.Withdrawal) error
}

type Service struct {
	store    Store
	calc     *cashback.Calculator
	payouter Payouter
	notifier Notifier
	currency string
	logger   *zap.Logger
	nowFn    func() time.Time
}

type Option func(*Service)

// WithPayouter sends approved withdrawals to the payout provider. Without
// one, approved withdrawals are paid out manually.
func WithPayouter(p Payouter) Option {
	return func(s *Service) { s.payouter = p }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithCurrency(currency string) Option {
	return func(s *Service) { s.currency = currency }
}

func NewService(store Store, calc *cashback.Calculator, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		calc:     calc,
		currency: "USD",
		logger:   logger,
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Request(ctx context.Context, userID uint, brokerName string, amount decimal.Decimal, destination string) (*models.Withdrawal, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return nil, ErrInvalidAmount
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, ErrDestinationRequired
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
	if amount.LessThan(broker.MinWithdrawal) {
		return nil, ErrBelowMinimum
	}

	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(balance.Requestable) {
		return nil, ErrInsufficientBalance
	}

	w := &models.Withdrawal{
		UserID:      userID,
		BrokerName:  broker.Name,
		Amount:      amount,
		Destination: destination,
		Status:      models.WithdrawalPending,
	}
	if err := s.store.CreateWithdrawal(ctx, w); err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}
	metrics.WithdrawalTransitions.WithLabelValues(models.WithdrawalPending).Inc()
	s.logger.Info("Withdrawal requested",
		zap.Uint("withdrawal_id", w.ID),
		zap.Uint("user_id", userID),
		zap.String("amount", amount.String()))
	return w, nil
}

func (s *Service) List(ctx context.Context, userID uint) ([]models.Withdrawal, error) {
	return s.store.ListWithdrawals(ctx, userID)
}

func (s *Service) ListByStatus(ctx context.Context, status string) ([]models.Withdrawal, error) {
	switch status {
	case "", models.WithdrawalPending, models.WithdrawalProcessing, models.WithdrawalCompleted, models.WithdrawalRejected:
		return s.store.ListWithdrawalsByStatus(ctx, status)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownStatus, status)
}

// Approve moves a pending withdrawal to processing. When a payout provider is
// configured the payout is created first, keyed by the withdrawal id so a
// retried approval cannot pay twice.
func (s *Service) Approve(ctx context.Context, id uint) (*models.Withdrawal, error) {
	w, err := s.store.WithdrawalByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find withdrawal: %w", err)
	}
	if w == nil {
		return nil, ErrNotFound
	}
	if w.Status != models.WithdrawalPending {
		return nil, ErrInvalidTransition
	}

	fields := map[string]any{"processed_at": s.nowFn().UTC()}
	if s.payouter != nil {
		p, err := s.payouter.CreatePayout(ctx, payout.Request{
			Amount:         w.Amount,
			Currency:       s.currency,
			Destination:    w.Destination,
			Description:    fmt.Sprintf("Cashback withdrawal #%d", w.ID),
			Metadata:       map[string]string{payout.MetadataWithdrawalID: strconv.FormatUint(uint64(w.ID), 10)},
			IdempotenceKey: IdempotenceKey(w.ID),
		})
		if err != nil {
			s.logger.Error("Payout failed", zap.Uint("withdrawal_id", w.ID), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrPayoutFailed, err)
		}
		fields["payout_id"] = p.ID
	}

	return s.transition(ctx, id, []string{models.WithdrawalPending}, models.WithdrawalProcessing, fields)
}

// Complete marks a processing withdrawal as paid.
func (s *Service) Complete(ctx context.Context, id uint, transactionRef string) (*models.Withdrawal, error) {
	transactionRef = strings.TrimSpace(transactionRef)
	if transactionRef == "" {
		return nil, ErrTransactionRefRequired
	}
	return s.transition(ctx, id, []string{models.WithdrawalProcessing}, models.WithdrawalCompleted, map[string]any{
		"transaction_ref": transactionRef,
		"completed_at":    s.nowFn().UTC(),
	})
}

func (s *Service) Reject(ctx context.Context, id uint, reason string) (*models.Withdrawal, error) {
	return s.transition(ctx, id, []string{models.WithdrawalPending, models.WithdrawalProcessing}, models.WithdrawalRejected, map[string]any{
		"reject_reason": strings.TrimSpace(reason),
	})
}

func (s *Service) transition(ctx context.Context, id uint, from []string, to string, fields map[string]any) (*models.Withdrawal, error) {
	fields["status"] = to
	changed, err := s.store.TransitionWithdrawal(ctx, id, from, fields)
	if err != nil {
		return nil, fmt.Errorf("update withdrawal: %w", err)
	}
	w, err := s.store.WithdrawalByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find withdrawal: %w", err)
	}
	if w == nil {
		return nil, ErrNotFound
	}
	if !changed {
		// A payout can succeed before Approve records the processing status.
		if to == models.WithdrawalCompleted && w.Status == models.WithdrawalPending {
			return nil, ErrAwaitingApproval
		}
		return nil, ErrInvalidTransition
	}

	metrics.WithdrawalTransitions.WithLabelValues(to).Inc()
	s.logger.Info("Withdrawal status changed",
		zap.Uint("withdrawal_id", id),
		zap.String("status", to))

	if s.notifier != nil {
		if err := s.notifier.NotifyWithdrawal(ctx, w); err != nil {
			s.logger.Warn("Failed to notify user about withdrawal", zap.Uint("withdrawal_id", id), zap.Error(err))
		}
	}
	return w, nil
}

// IdempotenceKey is stable for a withdrawal across retries and restarts.
func IdempotenceKey(withdrawalID uint) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("withdrawal:"+strconv.FormatUint(uint64(withdrawalID), 10))).String()
}
