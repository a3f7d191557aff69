package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"cashback-dashboard/internal/cashback"
)

type Config struct {
	DBUser        string
	DBPassword    string
	DBName        string
	DBHost        string
	DBPort        string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	HTTPPort       string
	JWTSecret      string
	AllowedOrigins []string
	BotToken       string
	LogProduction  bool

	KafkaBrokers     []string
	KafkaGroupID     string
	KafkaTradesTopic string

	BrokerAPIURL string
	BrokerAPIKey string

	PayoutShopID     string
	PayoutSecretKey  string
	PayoutCurrency   string
	PayoutAllowedIPs []string
	MinWithdrawal    decimal.Decimal

	CashbackRates        string
	CashbackDefaultRate  decimal.Decimal
	CashbackBasePerLot   decimal.Decimal
	ReferralCommission   decimal.Decimal
	SettlementRetryEvery time.Duration
	SettlementMaxTries   int
	TradeSyncEvery       time.Duration
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "cashback"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		BotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
		LogProduction:  getEnvAsBool("LOG_PRODUCTION", false),

		KafkaBrokers:     getEnvAsSlice("KAFKA_BROKERS", nil),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "cashback-dashboard"),
		KafkaTradesTopic: getEnv("KAFKA_TRADES_TOPIC", "trades.ingested"),

		BrokerAPIURL: getEnv("BROKER_API_URL", ""),
		BrokerAPIKey: getEnv("BROKER_API_KEY", ""),

		PayoutShopID:    getEnv("PAYOUT_SHOP_ID", ""),
		PayoutSecretKey: getEnv("PAYOUT_SECRET_KEY", ""),
		PayoutCurrency:  getEnv("PAYOUT_CURRENCY", "USD"),
		MinWithdrawal:   getEnvAsDecimal("MIN_WITHDRAWAL", decimal.NewFromInt(10)),
		PayoutAllowedIPs: getEnvAsSlice("PAYOUT_ALLOWED_IPS", []string{
			"185.71.76.0/27",
			"185.71.77.0/27",
			"77.75.153.0/25",
			"77.75.156.224/28",
			"77.75.154.128/25",
			"2a02:5180::/32",
		}),

		CashbackRates:        getEnv("CASHBACK_RATES", ""),
		CashbackDefaultRate:  getEnvAsDecimal("CASHBACK_DEFAULT_RATE", cashback.DefaultRate),
		CashbackBasePerLot:   getEnvAsDecimal("CASHBACK_BASE_PER_LOT", cashback.DefaultBasePerLot),
		ReferralCommission:   getEnvAsDecimal("REFERRAL_COMMISSION_RATE", cashback.DefaultReferralRate),
		SettlementRetryEvery: getEnvAsDuration("SETTLEMENT_RETRY_INTERVAL", 30*time.Second),
		SettlementMaxTries:   getEnvAsInt("SETTLEMENT_MAX_ATTEMPTS", 5),
		TradeSyncEvery:       getEnvAsDuration("TRADE_SYNC_INTERVAL", 5*time.Minute),
	}
}

// Cashback builds the calculator configuration. CASHBACK_RATES replaces the
// built-in table when set.
func (c *Config) Cashback() (cashback.Config, error) {
	cfg := cashback.DefaultConfig()
	if c.CashbackRates != "" {
		rates, err := cashback.ParseRates(c.CashbackRates)
		if err != nil {
			return cashback.Config{}, fmt.Errorf("CASHBACK_RATES: %w", err)
		}
		cfg.Rates = rates
	}
	if c.CashbackDefaultRate.IsNegative() || c.CashbackDefaultRate.GreaterThan(decimal.NewFromInt(1)) {
		return cashback.Config{}, fmt.Errorf("CASHBACK_DEFAULT_RATE must be within [0,1], got %s", c.CashbackDefaultRate)
	}
	if c.ReferralCommission.IsNegative() || c.ReferralCommission.GreaterThan(decimal.NewFromInt(100)) {
		return cashback.Config{}, fmt.Errorf("REFERRAL_COMMISSION_RATE must be within [0,100], got %s", c.ReferralCommission)
	}
	// referral_earnings.commission_rate is numeric(6,2)
	if !c.ReferralCommission.Equal(c.ReferralCommission.Round(2)) {
		return cashback.Config{}, fmt.Errorf("REFERRAL_COMMISSION_RATE allows at most 2 decimals, got %s", c.ReferralCommission)
	}
	cfg.DefaultRate = c.CashbackDefaultRate
	cfg.BasePerLot = c.CashbackBasePerLot
	cfg.ReferralRate = c.ReferralCommission
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if val, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if val, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return val
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if val, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return val
	}
	return fallback
}

func getEnvAsDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if val, err := decimal.NewFromString(getEnv(key, "")); err == nil {
		return val
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	val := getEnv(key, "")
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
