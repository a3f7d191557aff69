package cashback

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	DefaultRate       = decimal.RequireFromString("0.15")
	DefaultBasePerLot = decimal.NewFromInt(10)
	// DefaultReferralRate is a percent of the referred user's cashback.
	DefaultReferralRate = decimal.NewFromInt(10)
)

// Config holds the rate table and the constants of the cashback formula.
// It is passed by value so tests and environments never share mutable state.
type Config struct {
	Rates        map[string]decimal.Decimal
	DefaultRate  decimal.Decimal
	BasePerLot   decimal.Decimal
	ReferralRate decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		Rates: map[string]decimal.Decimal{
			"XM":       decimal.RequireFromString("0.25"),
			"FBS":      decimal.RequireFromString("0.30"),
			"Exness":   decimal.RequireFromString("0.20"),
			"Tickmill": decimal.RequireFromString("0.20"),
		},
		DefaultRate:  DefaultRate,
		BasePerLot:   DefaultBasePerLot,
		ReferralRate: DefaultReferralRate,
	}
}

// RateFor returns the cashback fraction for a broker. Names are matched exactly.
func (c Config) RateFor(brokerName string) decimal.Decimal {
	if rate, ok := c.Rates[brokerName]; ok {
		return rate
	}
	return c.DefaultRate
}

// ParseRates reads a "NAME=fraction,NAME=fraction" list.
func ParseRates(s string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid rate entry %q", part)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", name, err)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("rate for %s must be within [0,1], got %s", name, rate)
		}
		rates[strings.TrimSpace(name)] = rate
	}
	return rates, nil
}
