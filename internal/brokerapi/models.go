package brokerapi

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	AccountNumber string `json:"accountNumber"`
	Status        string `json:"status"`
	Verified      bool   `json:"verified"`
	Currency      string `json:"currency"`
}

type Trade struct {
	Ticket     string              `json:"ticket"`
	Symbol     string              `json:"symbol"`
	Lots       decimal.Decimal     `json:"lots"`
	Commission decimal.NullDecimal `json:"commission"`
	Profit     decimal.Decimal     `json:"profit"`
	OpenTime   time.Time           `json:"openTime"`
	CloseTime  time.Time           `json:"closeTime"`
}

// Wrappers for API responses
type accountResponse struct {
	Response Account `json:"response"`
}

type tradesResponse struct {
	Response []Trade `json:"response"`
}
