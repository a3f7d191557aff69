package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RelationshipPending = "pending"
	RelationshipActive  = "active"

	EarningPending = "pending"
	EarningPaid    = "paid"
)

// ReferralRelationship links a referrer to a referred user. A user can be
// referred at most once, enforced by the unique index on referred_id.
type ReferralRelationship struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	ReferrerID     uint                `gorm:"not null;index" json:"referrer_id"`
	ReferredID     uint                `gorm:"not null;uniqueIndex" json:"referred_id"`
	Status         string              `gorm:"size:16;not null;index" json:"status"`
	CommissionRate decimal.NullDecimal `gorm:"type:numeric(6,2)" json:"commission_rate"` // percent, null uses the platform rate
	ActivatedAt    *time.Time          `json:"activated_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ReferralEarning is the commission owed to a referrer for one settled trade.
// trade_id is the idempotency key.
type ReferralEarning struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ReferrerID       uint            `gorm:"not null;index" json:"referrer_id"`
	ReferredID       uint            `gorm:"not null;index" json:"referred_id"`
	TradeID          uint            `gorm:"not null;uniqueIndex" json:"trade_id"`
	CashbackAmount   decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"cashback_amount"`
	CommissionRate   decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"commission_rate"`
	CommissionAmount decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"commission_amount"`
	Status           string          `gorm:"size:16;not null;index" json:"status"`
	Period           string          `gorm:"size:7;not null;index" json:"period"`
	CreatedAt        time.Time       `json:"created_at"`
}
