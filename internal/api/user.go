package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"cashback-dashboard/internal/referral"
)

type linkAccountRequest struct {
	BrokerName    string `json:"broker_name" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
}

type withdrawalRequest struct {
	BrokerName  string          `json:"broker_name" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}

type applyReferralRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) getBalance(c *gin.Context) {
	balance, err := h.wallet.Balance(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *Handler) getTrades(c *gin.Context) {
	trades, err := h.wallet.Trades(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (h *Handler) getAccounts(c *gin.Context) {
	list, err := h.accounts.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": list})
}

func (h *Handler) linkAccount(c *gin.Context) {
	var req linkAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errBadRequest)
		return
	}
	account, err := h.accounts.Link(c.Request.Context(), currentUserID(c), req.BrokerName, req.AccountNumber)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *Handler) getWithdrawals(c *gin.Context) {
	list, err := h.wallet.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

func (h *Handler) requestWithdrawal(c *gin.Context) {
	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errBadRequest)
		return
	}
	w, err := h.wallet.Request(c.Request.Context(), currentUserID(c), req.BrokerName, req.Amount, req.Destination)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *Handler) getReferrals(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.store.UserByID(ctx, currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if user == nil {
		h.respondError(c, errUserNotFound)
		return
	}

	stats, err := h.referrals.Stats(ctx, user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":  user.ReferralCode,
		"stats": stats,
	})
}

func (h *Handler) applyReferral(c *gin.Context) {
	var req applyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errBadRequest)
		return
	}
	rel, err := h.referrals.Apply(c.Request.Context(), currentUserID(c), req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rel)
}

// getEarnings accepts an optional ?period=YYYY-MM filter.
func (h *Handler) getEarnings(c *gin.Context) {
	period := c.Query("period")
	if period != "" {
		if _, err := time.Parse(referral.PeriodLayout, period); err != nil {
			h.respondError(c, errBadPeriod)
			return
		}
	}
	earnings, err := h.referrals.Earnings(c.Request.Context(), currentUserID(c), period)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"earnings": earnings})
}
