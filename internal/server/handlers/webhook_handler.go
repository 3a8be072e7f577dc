package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/service/settlement"
)

// SecretHeader carries the shared secret mobile-money providers sign their
// callbacks with.
const SecretHeader = "X-Webhook-Secret"

type paymentConfirmer interface {
	ConfirmPayment(ctx context.Context, actor models.Actor, in settlement.ConfirmPaymentInput) (models.Settlement, error)
}

// mobileMoneyCallback is the provider callback body.
type mobileMoneyCallback struct {
	ContractID  string `json:"contract_id" binding:"required"`
	Method      string `json:"method" binding:"required"`
	ProviderRef string `json:"provider_ref" binding:"required"`
}

// WebhookHandler handles mobile-money payment callbacks.
type WebhookHandler struct {
	payments paymentConfirmer
	secret   []byte
	actor    models.Actor
	logger   *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter. Callbacks settle
// contracts as the system actor of the platform entity.
func NewWebhookHandler(payments paymentConfirmer, secret, platformEntityID string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		payments: payments,
		secret:   []byte(secret),
		actor:    models.SystemActor(platformEntityID),
		logger:   logger,
	}
}

// MobileMoney confirms the payment of a sale contract.
func (h *WebhookHandler) MobileMoney(c *gin.Context) {
	got := []byte(c.GetHeader(SecretHeader))
	if len(h.secret) == 0 || subtle.ConstantTimeCompare(got, h.secret) != 1 {
		h.logger.Warn("mobile money callback with bad secret", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var payload mobileMoneyCallback
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid mobile money payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	s, err := h.payments.ConfirmPayment(c.Request.Context(), h.actor, settlement.ConfirmPaymentInput{
		ContractID:  payload.ContractID,
		Method:      models.PaymentMethod(payload.Method),
		ProviderRef: payload.ProviderRef,
	})
	if err != nil {
		h.logger.Info("mobile money callback rejected",
			zap.String("contract_id", payload.ContractID),
			zap.String("provider_ref", payload.ProviderRef),
			zap.Error(err))
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contract_id":      s.Contract.ID,
		"payment_id":       s.Payment.ID,
		"receipt_id":       s.Receipt.ID,
		"receipt_status":   s.Receipt.Status,
		"net_to_owner_xof": s.Contract.NetToOwner,
	})
}
