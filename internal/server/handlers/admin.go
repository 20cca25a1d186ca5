package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/internal/application/reconcileservice"
	"github.com/tuncanbit/paygate/internal/ratelimit"
)

type AdminHandler struct {
	reconcileSvc reconcileservice.IReconcileService
	limiter      *ratelimit.Limiter
	logger       zerolog.Logger
}

func NewAdminHandler(
	reconcileSvc reconcileservice.IReconcileService,
	limiter *ratelimit.Limiter,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		reconcileSvc: reconcileSvc,
		limiter:      limiter,
		logger:       logger,
	}
}

type resetRateLimitRequest struct {
	Identity string `json:"identity" binding:"required"`
}

// ResetRateLimit clears a single identity's request window.
func (h *AdminHandler) ResetRateLimit(c *gin.Context) {
	var req resetRateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity is required"})
		return
	}

	h.limiter.Reset(req.Identity)
	h.logger.Info().
		Str("identity", req.Identity).
		Str("operator", c.GetString("operator")).
		Msg("Rate limit window reset")
	c.JSON(http.StatusOK, gin.H{"reset": req.Identity})
}

// ConfirmPayment force-confirms a payment for out-of-band settlement.
func (h *AdminHandler) ConfirmPayment(c *gin.Context) {
	memo := strings.ToUpper(strings.TrimSpace(c.Param("memo")))

	payment, err := h.reconcileSvc.ConfirmManually(c.Request.Context(), memo)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	h.logger.Info().
		Str("memo", memo).
		Str("operator", c.GetString("operator")).
		Msg("Payment confirmed by operator")
	c.JSON(http.StatusOK, gin.H{
		"memo":         payment.Memo,
		"status":       payment.Status,
		"access_token": payment.AccessToken,
	})
}
