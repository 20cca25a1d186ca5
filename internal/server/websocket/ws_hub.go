package websocket

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/paygate/internal/domain"
)

// WsHub fans payment status events out to clients waiting on a memo. A
// paywall page subscribes with its memo and is pushed the confirmation event
// instead of polling.
type WsHub struct {
	Clients    map[string]map[*websocket.Conn]bool
	Broadcast  chan WsMessage
	Register   chan *WsClient
	Unregister chan *WsClient
	Logger     zerolog.Logger
}

type WsClient struct {
	Memo string
	Conn *websocket.Conn
}

type WsMessage struct {
	Type    string          `json:"type"`
	Payment *domain.Payment `json:"payment,omitempty"`
}

func NewWsHub(logger zerolog.Logger) *WsHub {
	return &WsHub{
		Clients:    make(map[string]map[*websocket.Conn]bool),
		Broadcast:  make(chan WsMessage, 100),
		Register:   make(chan *WsClient, 100),
		Unregister: make(chan *WsClient, 100),
		Logger:     logger,
	}
}

func (h *WsHub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.Memo] == nil {
				h.Clients[client.Memo] = make(map[*websocket.Conn]bool)
			}
			h.Clients[client.Memo][client.Conn] = true
			h.Logger.Info().
				Str("memo", client.Memo).
				Int("connection_count", len(h.Clients[client.Memo])).
				Msg("WebSocket client registered")

		case client := <-h.Unregister:
			if clients, ok := h.Clients[client.Memo]; ok {
				delete(clients, client.Conn)
				if len(clients) == 0 {
					delete(h.Clients, client.Memo)
				}
				client.Conn.Close()
				h.Logger.Info().
					Str("memo", client.Memo).
					Msg("WebSocket client unregistered")
			}

		case message := <-h.Broadcast:
			if message.Payment == nil {
				continue
			}
			memo := message.Payment.Memo
			for conn := range h.Clients[memo] {
				if err := conn.WriteJSON(message); err != nil {
					h.Logger.Error().
						Err(err).
						Str("memo", memo).
						Msg("Failed to push payment event, dropping client")
					conn.Close()
					delete(h.Clients[memo], conn)
				}
			}
		}
	}
}

// BroadcastPayment queues a payment status event for all clients watching
// its memo. Non-blocking: events are dropped if the hub is backed up.
func (h *WsHub) BroadcastPayment(payment domain.Payment) {
	select {
	case h.Broadcast <- WsMessage{Type: "payment", Payment: &payment}:
	default:
		h.Logger.Warn().Str("memo", payment.Memo).Msg("WebSocket broadcast queue full, dropping event")
	}
}
