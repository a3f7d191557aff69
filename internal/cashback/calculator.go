package cashback

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

func (c *Calculator) Config() Config {
	return c.cfg
}

// Cashback returns the rebate for one trade. A commission is only used as the
// base when it is present and strictly positive, otherwise the lot volume is.
// Inputs are assumed validated by the caller.
func (c *Calculator) Cashback(brokerName string, lots decimal.Decimal, commission decimal.NullDecimal) decimal.Decimal {
	base := lots.Mul(c.cfg.BasePerLot)
	if commission.Valid && commission.Decimal.IsPositive() {
		base = commission.Decimal
	}
	return base.Mul(c.cfg.RateFor(brokerName))
}

// Commission derives the referrer's share of a cashback amount.
func Commission(cashbackAmount, ratePercent decimal.Decimal) decimal.Decimal {
	return cashbackAmount.Mul(ratePercent).Div(hundred)
}

// AvailableBalance never goes below zero.
func AvailableBalance(cashbackTotal, completedWithdrawals decimal.Decimal) decimal.Decimal {
	available := cashbackTotal.Sub(completedWithdrawals)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}
