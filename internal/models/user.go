package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        *string   `gorm:"size:255;uniqueIndex" json:"email,omitempty"`
	TelegramID   *int64    `gorm:"uniqueIndex" json:"telegram_id,omitempty"`
	Username     string    `gorm:"size:255" json:"username"`
	Role         string    `gorm:"size:16;not null" json:"role"`
	ReferralCode string    `gorm:"size:32;uniqueIndex;not null" json:"referral_code"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
