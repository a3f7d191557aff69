package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type brokerFlagsRequest struct {
	Available   *bool `json:"available"`
	Maintenance *bool `json:"maintenance"`
}

type completeRequest struct {
	TransactionRef string `json:"transaction_ref"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) listBrokers(c *gin.Context) {
	brokers, err := h.store.ListBrokers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"brokers": brokers})
}

func (h *Handler) updateBroker(c *gin.Context) {
	var req brokerFlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errBadRequest)
		return
	}
	broker, err := h.store.UpdateBrokerFlags(c.Request.Context(), c.Param("name"), req.Available, req.Maintenance)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if broker == nil {
		h.respondError(c, errBrokerNotFound)
		return
	}
	h.logger.Info("Broker flags updated",
		zap.String("broker", broker.Name),
		zap.Bool("available", broker.Available),
		zap.Bool("maintenance", broker.Maintenance))
	c.JSON(http.StatusOK, broker)
}

func (h *Handler) listWithdrawals(c *gin.Context) {
	list, err := h.wallet.ListByStatus(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

func (h *Handler) approveWithdrawal(c *gin.Context) {
	id, ok := h.withdrawalID(c)
	if !ok {
		return
	}
	w, err := h.wallet.Approve(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) completeWithdrawal(c *gin.Context) {
	id, ok := h.withdrawalID(c)
	if !ok {
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errBadRequest)
		return
	}
	w, err := h.wallet.Complete(c.Request.Context(), id, req.TransactionRef)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) rejectWithdrawal(c *gin.Context) {
	id, ok := h.withdrawalID(c)
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errBadRequest)
		return
	}
	w, err := h.wallet.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) withdrawalID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		h.respondError(c, errBadID)
		return 0, false
	}
	return uint(id), true
}
