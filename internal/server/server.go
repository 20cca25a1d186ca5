package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/internal/application/accessservice"
	authservice "github.com/tuncanbit/paygate/internal/application/auth"
	"github.com/tuncanbit/paygate/internal/application/reconcileservice"
	"github.com/tuncanbit/paygate/internal/ratelimit"
	"github.com/tuncanbit/paygate/internal/server/handlers"
	"github.com/tuncanbit/paygate/internal/server/websocket"
	"github.com/tuncanbit/paygate/pkg/config"
)

type Server struct {
	ReconcileSvc reconcileservice.IReconcileService
	AccessSvc    accessservice.IAccessService
	AuthSvc      authservice.IAuthService
	Limiter      *ratelimit.Limiter
	WsHub        *websocket.WsHub
	Cfg          *config.Config
	Logger       zerolog.Logger
	Router       *gin.Engine
	httpServer   *http.Server
}

func New(
	cfg *config.Config,
	reconcileSvc reconcileservice.IReconcileService,
	accessSvc accessservice.IAccessService,
	authSvc authservice.IAuthService,
	limiter *ratelimit.Limiter,
	wsHub *websocket.WsHub,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	return &Server{
		Cfg:          cfg,
		ReconcileSvc: reconcileSvc,
		AccessSvc:    accessSvc,
		AuthSvc:      authSvc,
		Limiter:      limiter,
		WsHub:        wsHub,
		Logger:       logger,
		Router:       gin.New(),
	}
}

func (s *Server) SetupRouter() {
	handler := handlers.New(
		s.ReconcileSvc,
		s.AccessSvc,
		s.AuthSvc,
		s.Limiter,
		s.WsHub,
		s.Logger,
		s.Cfg,
	)
	handler.SetupHandlers(s.Router)
}

// Start serves until SIGINT/SIGTERM, then shuts the listener down
// gracefully and returns so the caller can flush state.
func (s *Server) Start() {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	s.Logger.Info().Msg("Server exited gracefully")
}
