package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cashback-dashboard/internal/models"
	"cashback-dashboard/internal/referral"
	"cashback-dashboard/internal/wallet"
)

type Wallet interface {
	Balance(ctx context.Context, userID uint) (wallet.Balance, error)
	Trades(ctx context.Context, userID uint) ([]wallet.TradeView, error)
	Request(ctx context.Context, userID uint, brokerName string, amount decimal.Decimal, destination string) (*models.Withdrawal, error)
	List(ctx context.Context, userID uint) ([]models.Withdrawal, error)
	ListByStatus(ctx context.Context, status string) ([]models.Withdrawal, error)
	Approve(ctx context.Context, id uint) (*models.Withdrawal, error)
	Complete(ctx context.Context, id uint, transactionRef string) (*models.Withdrawal, error)
	Reject(ctx context.Context, id uint, reason string) (*models.Withdrawal, error)
}

type Accounts interface {
	Link(ctx context.Context, userID uint, brokerName, accountNumber string) (*models.TradingAccount, error)
	List(ctx context.Context, userID uint) ([]models.TradingAccount, error)
}

type Referrals interface {
	Apply(ctx context.Context, referredID uint, code string) (*models.ReferralRelationship, error)
	Stats(ctx context.Context, referrerID uint) (referral.Stats, error)
	Earnings(ctx context.Context, referrerID uint, period string) ([]models.ReferralEarning, error)
}

// Store covers the lookups handlers do without a domain service.
type Store interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
	ListBrokers(ctx context.Context) ([]models.Broker, error)
	UpdateBrokerFlags(ctx context.Context, name string, available, maintenance *bool) (*models.Broker, error)
	Ping() error
}

type Handler struct {
	wallet    Wallet
	accounts  Accounts
	referrals Referrals
	store     Store
	payoutIPs []string
	logger    *zap.Logger
}

func NewHandler(wallet Wallet, accounts Accounts, referrals Referrals, store Store, payoutIPs []string, logger *zap.Logger) *Handler {
	return &Handler{
		wallet:    wallet,
		accounts:  accounts,
		referrals: referrals,
		store:     store,
		payoutIPs: payoutIPs,
		logger:    logger,
	}
}

type RouterOptions struct {
	JWTSecret      string
	AllowedOrigins []string
	Production     bool
}

func (h *Handler) Router(opts RouterOptions) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// The payout webhook allow-list relies on the peer address.
	_ = r.SetTrustedProxies(nil)
	r.Use(gin.Recovery())
	r.Use(RequestLogger(h.logger))
	r.Use(MetricsMiddleware())
	r.Use(SetupCORS(opts.AllowedOrigins))

	r.GET("/api/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/webhooks/payouts", h.payoutWebhook)

	me := r.Group("/api/me")
	me.Use(AuthMiddleware(opts.JWTSecret))
	{
		me.GET("/balance", h.getBalance)
		me.GET("/trades", h.getTrades)
		me.GET("/accounts", h.getAccounts)
		me.POST("/accounts", h.linkAccount)
		me.GET("/withdrawals", h.getWithdrawals)
		me.POST("/withdrawals", h.requestWithdrawal)
		me.GET("/referrals", h.getReferrals)
		me.POST("/referrals", h.applyReferral)
		me.GET("/referrals/earnings", h.getEarnings)
	}

	admin := r.Group("/api/admin")
	admin.Use(AuthMiddleware(opts.JWTSecret), AdminMiddleware())
	{
		admin.GET("/brokers", h.listBrokers)
		admin.PATCH("/brokers/:name", h.updateBroker)
		admin.GET("/withdrawals", h.listWithdrawals)
		admin.POST("/withdrawals/:id/approve", h.approveWithdrawal)
		admin.POST("/withdrawals/:id/complete", h.completeWithdrawal)
		admin.POST("/withdrawals/:id/reject", h.rejectWithdrawal)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(); err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
