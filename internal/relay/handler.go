package relay

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to live connections and wires the
// pumps to the hub and the messaging layer.
type Handler struct {
	hub         *Hub
	sendMessage SendFunc
}

// NewHandler creates the /ws endpoint handler.
func NewHandler(hub *Hub, sendMessage SendFunc) *Handler {
	return &Handler{hub: hub, sendMessage: sendMessage}
}

// ServeHTTP identifies the user (browsers cannot set headers on
// WebSocket dials, so a query parameter stands in for the session
// header), upgrades, registers the connection, and starts the pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID == 0 {
		http.Error(w, "user_id query parameter required", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("relay upgrade failed", "err", err)
		return
	}

	client := NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.sendMessage)
}
