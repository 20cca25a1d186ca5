package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/internal/application/accessservice"
	"github.com/tuncanbit/paygate/internal/application/reconcileservice"
	"github.com/tuncanbit/paygate/internal/repositories/paymentrepo"
	"github.com/tuncanbit/paygate/pkg/currency"
)

type PaymentHandler struct {
	reconcileSvc reconcileservice.IReconcileService
	accessSvc    accessservice.IAccessService
	logger       zerolog.Logger
}

func NewPaymentHandler(
	reconcileSvc reconcileservice.IReconcileService,
	accessSvc accessservice.IAccessService,
	logger zerolog.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		reconcileSvc: reconcileSvc,
		accessSvc:    accessSvc,
		logger:       logger,
	}
}

type createSessionRequest struct {
	Memo string `json:"memo"`
}

// CreateSession starts (or idempotently re-reads) a payment session. The
// memo may be caller-supplied; otherwise one is generated.
func (h *PaymentHandler) CreateSession(c *gin.Context) {
	// empty body is fine, anything unparseable is not; chunked requests
	// carry ContentLength -1 and still need parsing
	var req createSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	memo := strings.ToUpper(strings.TrimSpace(req.Memo))
	if memo == "" {
		memo = h.reconcileSvc.GenerateMemo(c.Request.Context())
	} else if !h.accessSvc.ValidateMemo(memo) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid memo code format"})
		return
	}

	payment, err := h.reconcileSvc.CreateSession(c.Request.Context(), memo)
	if err != nil {
		h.logger.Error().Err(err).Str("memo", memo).Msg("Failed to create payment session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment session"})
		return
	}

	required := h.reconcileSvc.RequiredAmount()
	c.JSON(http.StatusCreated, gin.H{
		"memo":          payment.Memo,
		"subaddress":    payment.Subaddress,
		"amount_xmr":    currency.FormatXMR(required),
		"amount_atomic": required,
		"status":        payment.Status,
		"created_at":    payment.CreatedAt,
	})
}

// ResolveMemo exchanges a confirmed memo for its access token.
func (h *PaymentHandler) ResolveMemo(c *gin.Context) {
	memo := strings.ToUpper(strings.TrimSpace(c.Param("memo")))

	payment, err := h.accessSvc.ResolveMemo(c.Request.Context(), memo)
	switch {
	case errors.Is(err, accessservice.ErrInvalidMemo):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid memo code format"})
	case errors.Is(err, paymentrepo.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
	case err != nil:
		h.logger.Error().Err(err).Str("memo", memo).Msg("Failed to resolve memo")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve memo"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"memo":         payment.Memo,
			"access_token": payment.AccessToken,
			"confirmed_at": payment.ConfirmedAt,
		})
	}
}

// CheckAccess reports whether a bearer token grants access. All denials are
// indistinguishable to the caller.
func (h *PaymentHandler) CheckAccess(c *gin.Context) {
	token := c.Query("token")
	c.JSON(http.StatusOK, gin.H{
		"access": h.accessSvc.CheckAccess(c.Request.Context(), token),
	})
}
