// Package relay owns the live-connection registry and the WebSocket
// plumbing around it: one connection per online user, register /
// unregister / lookup as atomic operations.
package relay

import (
	"log/slog"
	"sync"
)

// Hub maps user ids to their single active live connection. All access
// goes through the mutex; callers never touch the map directly.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]*Client
	logger  *slog.Logger
}

// NewHub creates an empty registry.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[uint64]*Client),
		logger:  logger,
	}
}

// Register inserts the client as the user's live connection. A user
// holds at most one connection: any previous one is evicted and closed
// so its pumps shut down instead of leaking.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	stale := h.clients[client.userID]
	h.clients[client.userID] = client
	total := len(h.clients)
	h.mu.Unlock()

	if stale != nil {
		stale.close()
	}

	h.logger.Debug("relay client connected", "user_id", client.userID, "online", total)
}

// Unregister removes the client if it is still the user's current
// connection. A stale client evicted by a reconnect must not remove
// its replacement.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.userID]
	if ok && current == client {
		delete(h.clients, client.userID)
	}
	total := len(h.clients)
	h.mu.Unlock()

	client.close()

	h.logger.Debug("relay client disconnected", "user_id", client.userID, "online", total)
}

// Push enqueues a payload for the user's live connection. Returns false
// if the user is offline or their send buffer is full (the frame is
// dropped; the durable record already exists).
func (h *Hub) Push(userID uint64, payload []byte) bool {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		h.logger.Warn("relay push dropped, send buffer full", "user_id", userID)
		return false
	}
}

// Online reports whether the user currently holds a live connection.
func (h *Hub) Online(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// ClientCount returns the number of online users.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
