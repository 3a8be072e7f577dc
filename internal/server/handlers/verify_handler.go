package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/service/receipts"
)

type verifier interface {
	Verify(ctx context.Context, query string) (receipts.Verification, error)
}

// VerifyHandler serves public receipt verification, the target of the QR
// code printed on a receipt.
type VerifyHandler struct {
	receipts verifier
	logger   *zap.Logger
}

// NewVerifyHandler constructs the verification handler.
func NewVerifyHandler(receipts verifier, logger *zap.Logger) *VerifyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerifyHandler{receipts: receipts, logger: logger}
}

// Verify looks a receipt up by id or verification payload.
func (h *VerifyHandler) Verify(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q"})
		return
	}

	v, err := h.receipts.Verify(c.Request.Context(), q)
	if err != nil {
		h.logger.Debug("verification failed", zap.String("q", q), zap.Error(err))
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
