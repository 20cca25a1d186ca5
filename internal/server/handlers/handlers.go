package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/internal/application/accessservice"
	authservice "github.com/tuncanbit/paygate/internal/application/auth"
	"github.com/tuncanbit/paygate/internal/application/reconcileservice"
	"github.com/tuncanbit/paygate/internal/ratelimit"
	"github.com/tuncanbit/paygate/internal/server/middleware"
	"github.com/tuncanbit/paygate/internal/server/websocket"
	"github.com/tuncanbit/paygate/pkg/config"
)

type Handlers struct {
	ReconcileSvc reconcileservice.IReconcileService
	AccessSvc    accessservice.IAccessService
	AuthSvc      authservice.IAuthService
	Limiter      *ratelimit.Limiter
	WsHub        *websocket.WsHub
	Logger       zerolog.Logger
	Config       *config.Config
}

func New(
	reconcileSvc reconcileservice.IReconcileService,
	accessSvc accessservice.IAccessService,
	authSvc authservice.IAuthService,
	limiter *ratelimit.Limiter,
	wsHub *websocket.WsHub,
	logger zerolog.Logger,
	config *config.Config,
) *Handlers {
	return &Handlers{
		ReconcileSvc: reconcileSvc,
		AccessSvc:    accessSvc,
		AuthSvc:      authSvc,
		Limiter:      limiter,
		WsHub:        wsHub,
		Logger:       logger,
		Config:       config,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	mw := middleware.NewMiddleware(h.AuthSvc, h.Limiter, h.Logger)
	mw.SetupMiddleware(router)

	paymentHandler := NewPaymentHandler(h.ReconcileSvc, h.AccessSvc, h.Logger)
	wsHandler := NewWebSocketHandler(h.WsHub, h.AccessSvc, h.Config.WebSocket, h.Logger)
	adminHandler := NewAdminHandler(h.ReconcileSvc, h.Limiter, h.Logger)
	healthHandler := NewHealthHandler()

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// payment status push
	router.GET("/ws", wsHandler.HandleConnection)

	v1 := router.Group("/v1")
	{
		sessions := v1.Group("/sessions", mw.RateLimit())
		{
			sessions.POST("", paymentHandler.CreateSession)
			sessions.GET("/:memo", paymentHandler.ResolveMemo)
		}

		v1.GET("/access", mw.RateLimit(), paymentHandler.CheckAccess)

		admin := v1.Group("/admin", mw.AdminAuth())
		{
			admin.POST("/ratelimit/reset", adminHandler.ResetRateLimit)
			admin.POST("/payments/:memo/confirm", adminHandler.ConfirmPayment)
		}
	}
}
