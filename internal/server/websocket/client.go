package websocket

import (
	"github.com/gorilla/websocket"
)

// ReadPump drains control frames from the client so pings are answered and
// the close handshake is observed. Clients never send application data.
func (h *WsHub) ReadPump(client *WsClient) {
	defer func() {
		h.Unregister <- client
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Debug().Err(err).Str("memo", client.Memo).Msg("WebSocket read error")
			}
			return
		}
	}
}
