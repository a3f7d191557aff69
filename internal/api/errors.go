package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cashback-dashboard/internal/accounts"
	"cashback-dashboard/internal/referral"
	"cashback-dashboard/internal/wallet"
)

var (
	errBadRequest     = errors.New("invalid request body")
	errBadID          = errors.New("invalid id")
	errBadPeriod      = errors.New("period must be formatted as YYYY-MM")
	errBrokerNotFound = errors.New("broker not found")
	errUserNotFound   = errors.New("user not found")
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, errBadID),
		errors.Is(err, errBadPeriod),
		errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrDestinationRequired),
		errors.Is(err, wallet.ErrTransactionRefRequired),
		errors.Is(err, wallet.ErrUnknownStatus),
		errors.Is(err, accounts.ErrInvalidAccount):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrNotFound),
		errors.Is(err, referral.ErrUnknownCode),
		errors.Is(err, errBrokerNotFound),
		errors.Is(err, errUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrInvalidTransition),
		errors.Is(err, wallet.ErrAwaitingApproval),
		errors.Is(err, accounts.ErrAccountTaken),
		errors.Is(err, referral.ErrAlreadyReferred),
		errors.Is(err, referral.ErrReferralClosed):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrUnknownBroker),
		errors.Is(err, wallet.ErrBrokerUnavailable),
		errors.Is(err, wallet.ErrBelowMinimum),
		errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, accounts.ErrUnknownBroker),
		errors.Is(err, accounts.ErrBrokerUnavailable),
		errors.Is(err, referral.ErrSelfReferral):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wallet.ErrPayoutFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError hides internal failures from the client and logs them instead.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"error": "internal server error"})
			return
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
