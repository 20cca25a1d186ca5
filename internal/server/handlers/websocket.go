package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/internal/application/accessservice"
	ws "github.com/tuncanbit/paygate/internal/server/websocket"
	"github.com/tuncanbit/paygate/pkg/config"
)

type WebSocketHandler struct {
	hub       *ws.WsHub
	accessSvc accessservice.IAccessService
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
}

func NewWebSocketHandler(
	hub *ws.WsHub,
	accessSvc accessservice.IAccessService,
	cfg config.WebSocketConfig,
	logger zerolog.Logger,
) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}
	if !cfg.CheckOrigin {
		// origin checking disabled: paywall pages may connect cross-origin.
		// When enabled, the upgrader's default same-origin check applies.
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	return &WebSocketHandler{
		hub:       hub,
		accessSvc: accessSvc,
		upgrader:  upgrader,
		logger:    logger,
	}
}

// HandleConnection subscribes a client to status events for one memo.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	memo := c.Query("memo")
	if !h.accessSvc.ValidateMemo(memo) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid memo code format"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := &ws.WsClient{Memo: memo, Conn: conn}
	h.hub.Register <- client
	go h.hub.ReadPump(client)
}
