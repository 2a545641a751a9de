package handler

import (
	"context"
	"errors"
	"net/http"

	"walletbot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Settler interface {
	HandleInvoiceCallback(ctx context.Context, cb service.InvoiceCallback) error
	HandleDisbursementCallback(ctx context.Context, cb service.DisbursementCallback) error
}

// XenditWebhookHandler receives invoice and disbursement callbacks. The callback
// token is checked by middleware before these run.
type XenditWebhookHandler struct {
	settlement Settler
	log        *logrus.Logger
}

func NewXenditWebhookHandler(settlement Settler, log *logrus.Logger) *XenditWebhookHandler {
	return &XenditWebhookHandler{settlement: settlement, log: log}
}

func (h *XenditWebhookHandler) Invoice(c *gin.Context) {
	var cb service.InvoiceCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if cb.ID == "" && cb.ExternalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id or external_id required"})
		return
	}
	err := h.settlement.HandleInvoiceCallback(c.Request.Context(), cb)
	h.respond(c, err, errors.Is(err, service.ErrUnknownPayment))
}

func (h *XenditWebhookHandler) Disbursement(c *gin.Context) {
	var cb service.DisbursementCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if cb.ID == "" && cb.ExternalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id or external_id required"})
		return
	}
	err := h.settlement.HandleDisbursementCallback(c.Request.Context(), cb)
	h.respond(c, err, errors.Is(err, service.ErrUnknownWithdrawal))
}

// respond acknowledges unknown references so Xendit stops retrying them. Other
// errors get a 500 and are retried by the provider.
func (h *XenditWebhookHandler) respond(c *gin.Context, err error, unknown bool) {
	if err != nil && !unknown {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("callback processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
