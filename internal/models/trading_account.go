package models

import (
	"time"
)

const (
	AccountStatusPending   = "pending"
	AccountStatusConnected = "connected"
)

type TradingAccount struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	BrokerName    string     `gorm:"size:64;not null;uniqueIndex:idx_broker_account" json:"broker_name"`
	AccountNumber string     `gorm:"size:64;not null;uniqueIndex:idx_broker_account" json:"account_number"`
	Status        string     `gorm:"size:16;not null;index" json:"status"`
	ConnectedAt   *time.Time `json:"connected_at,omitempty"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
