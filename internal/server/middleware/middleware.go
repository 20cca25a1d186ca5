package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	authservice "github.com/tuncanbit/paygate/internal/application/auth"
	"github.com/tuncanbit/paygate/internal/ratelimit"
)

type Middleware struct {
	AuthSvc authservice.IAuthService
	Limiter *ratelimit.Limiter
	logger  zerolog.Logger
}

func NewMiddleware(authSvc authservice.IAuthService, limiter *ratelimit.Limiter, logger zerolog.Logger) *Middleware {
	return &Middleware{
		AuthSvc: authSvc,
		Limiter: limiter,
		logger:  logger,
	}
}

func (m *Middleware) SetupMiddleware(router *gin.Engine) {
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	logger := m.logger
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		logger.Info().
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status", param.StatusCode).
			Dur("latency", param.Latency).
			Str("client_ip", param.ClientIP).
			Msg("HTTP Request")
		return ""
	}))

	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Next()
	})
}

// RateLimit gates a route group on the sliding-window limiter, keyed by
// client IP. A denied request does not count toward the caller's window.
func (m *Middleware) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.ClientIP()
		if !m.Limiter.Allow(identity) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, slow down",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
