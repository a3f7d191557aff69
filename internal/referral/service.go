package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cashback-dashboard/internal/models"
)

var (
	ErrUnknownCode     = errors.New("unknown referral code")
	ErrSelfReferral    = errors.New("cannot refer yourself")
	ErrAlreadyReferred = errors.New("user already has a referrer")
	ErrReferralClosed  = errors.New("referral codes can only be applied before the first account is connected")
)

// Store lookups return a nil record and a nil error when nothing matches.
type Store interface {
	UserByReferralCode(ctx context.Context, code string) (*models.User, error)
	HasConnectedAccount(ctx context.Context, userID uint) (bool, error)
	// CreateRelationship reports false when the referred user already has a relationship.
	CreateRelationship(ctx context.Context, rel *models.ReferralRelationship) (bool, error)
	CountRelationships(ctx context.Context, referrerID uint) (invited, active int64, err error)
	SumCommission(ctx context.Context, referrerID uint) (total, pending decimal.Decimal, err error)
	ListEarnings(ctx context.Context, referrerID uint, period string) ([]models.ReferralEarning, error)
}

type Stats struct {
	Invited           int64           `json:"invited"`
	Active            int64           `json:"active"`
	CommissionTotal   decimal.Decimal `json:"commission_total"`
	CommissionPending decimal.Decimal `json:"commission_pending"`
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// NewCode returns a fresh referral code for a new user.
func NewCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ref_" + id[:10]
}

// Apply links referredID to the owner of code with a pending relationship.
func (s *Service) Apply(ctx context.Context, referredID uint, code string) (*models.ReferralRelationship, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrUnknownCode
	}
	referrer, err := s.store.UserByReferralCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find referrer: %w", err)
	}
	if referrer == nil {
		return nil, ErrUnknownCode
	}
	if referrer.ID == referredID {
		return nil, ErrSelfReferral
	}

	connected, err := s.store.HasConnectedAccount(ctx, referredID)
	if err != nil {
		return nil, fmt.Errorf("check connected accounts: %w", err)
	}
	if connected {
		return nil, ErrReferralClosed
	}

	rel := &models.ReferralRelationship{
		ReferrerID: referrer.ID,
		ReferredID: referredID,
		Status:     models.RelationshipPending,
	}
	created, err := s.store.CreateRelationship(ctx, rel)
	if err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}
	if !created {
		return nil, ErrAlreadyReferred
	}

	s.logger.Info("Referral applied",
		zap.Uint("referrer_id", referrer.ID),
		zap.Uint("referred_id", referredID))
	return rel, nil
}

func (s *Service) Stats(ctx context.Context, referrerID uint) (Stats, error) {
	invited, active, err := s.store.CountRelationships(ctx, referrerID)
	if err != nil {
		return Stats{}, fmt.Errorf("count relationships: %w", err)
	}
	total, pending, err := s.store.SumCommission(ctx, referrerID)
	if err != nil {
		return Stats{}, fmt.Errorf("sum commission: %w", err)
	}
	return Stats{
		Invited:           invited,
		Active:            active,
		CommissionTotal:   total,
		CommissionPending: pending,
	}, nil
}

// Earnings lists the referrer's earnings, newest first. An empty period means all periods.
func (s *Service) Earnings(ctx context.Context, referrerID uint, period string) ([]models.ReferralEarning, error) {
	earnings, err := s.store.ListEarnings(ctx, referrerID, period)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}
	return earnings, nil
}
