package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a historical fact reported by the broker and is never updated after ingestion.
type Trade struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	TradingAccountID uint                `gorm:"not null;uniqueIndex:idx_account_ticket" json:"trading_account_id"`
	Ticket           string              `gorm:"size:64;not null;uniqueIndex:idx_account_ticket" json:"ticket"`
	Symbol           string              `gorm:"size:32" json:"symbol"`
	Lots             decimal.Decimal     `gorm:"type:numeric(20,4);not null" json:"lots"`
	Commission       decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"commission"`
	Profit           decimal.Decimal     `gorm:"type:numeric(20,8);not null" json:"profit"`
	OpenTime         time.Time           `json:"open_time"`
	CloseTime        time.Time           `gorm:"index" json:"close_time"`
	CreatedAt        time.Time           `json:"created_at"`
}

// TradeRow is a trade joined with the broker of its trading account.
type TradeRow struct {
	Trade
	UserID     uint   `json:"user_id"`
	BrokerName string `json:"broker_name"`
}
