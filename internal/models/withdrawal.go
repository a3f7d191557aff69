package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawalPending    = "pending"
	WithdrawalProcessing = "processing"
	WithdrawalCompleted  = "completed"
	WithdrawalRejected   = "rejected"
)

type Withdrawal struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	BrokerName     string          `gorm:"size:64;not null" json:"broker_name"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Destination    string          `gorm:"size:255;not null" json:"destination"`
	Status         string          `gorm:"size:16;not null;index" json:"status"`
	PayoutID       string          `gorm:"size:255" json:"payout_id,omitempty"`
	TransactionRef string          `gorm:"size:255" json:"transaction_ref,omitempty"`
	RejectReason   string          `gorm:"size:512" json:"reject_reason,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
