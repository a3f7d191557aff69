package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Broker is static reference data. Only the availability flags change at runtime.
type Broker struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:64;uniqueIndex;not null" json:"name"`
	CashbackRate  decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"cashback_rate"`
	MinWithdrawal decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"min_withdrawal"`
	Available     bool            `gorm:"not null" json:"available"`
	Maintenance   bool            `gorm:"not null" json:"maintenance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Open reports whether new accounts, syncs and withdrawals may target the broker.
func (b *Broker) Open() bool {
	return b.Available && !b.Maintenance
}
