package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cashback-dashboard/internal/models"
	"cashback-dashboard/internal/payout"
	"cashback-dashboard/internal/utils"
	"cashback-dashboard/internal/wallet"
)

// payoutWebhook applies payout status notifications. Anything the provider
// should not redeliver is acknowledged with 200. A success for a withdrawal
// that is still pending gets 503 so the provider redelivers it after Approve
// has moved it to processing.
func (h *Handler) payoutWebhook(c *gin.Context) {
	ip := c.ClientIP()
	if !utils.IsAllowedIP(ip, h.payoutIPs) {
		h.logger.Warn("Rejected payout webhook from unknown address", zap.String("ip", ip))
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var notification payout.Notification
	if err := c.ShouldBindJSON(&notification); err != nil {
		h.logger.Warn("Failed to decode payout webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": errBadRequest.Error()})
		return
	}

	if notification.Event != payout.EventSucceeded && notification.Event != payout.EventCanceled {
		h.logger.Info("Ignored payout event", zap.String("event", notification.Event))
		c.Status(http.StatusOK)
		return
	}

	id, err := notification.Object.WithdrawalID()
	if err != nil {
		h.logger.Warn("Payout webhook without withdrawal", zap.String("payout_id", notification.Object.ID), zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	var w *models.Withdrawal
	if notification.Event == payout.EventSucceeded {
		w, err = h.wallet.Complete(c.Request.Context(), id, notification.Object.ID)
	} else {
		w, err = h.wallet.Reject(c.Request.Context(), id, notification.Object.CancelReason())
	}

	switch {
	case errors.Is(err, wallet.ErrAwaitingApproval):
		h.logger.Warn("Payout webhook arrived before approval was recorded",
			zap.Uint("withdrawal_id", id),
			zap.String("payout_id", notification.Object.ID))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "withdrawal is not processing yet"})
	case errors.Is(err, wallet.ErrInvalidTransition), errors.Is(err, wallet.ErrNotFound):
		h.logger.Info("Payout webhook already applied or stale",
			zap.Uint("withdrawal_id", id),
			zap.String("event", notification.Event),
			zap.Error(err))
		c.Status(http.StatusOK)
	case err != nil:
		h.logger.Error("Failed to apply payout webhook", zap.Uint("withdrawal_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		h.logger.Info("Payout webhook applied",
			zap.Uint("withdrawal_id", w.ID),
			zap.String("status", w.Status))
		c.Status(http.StatusOK)
	}
}
