package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameSize   = 4096
	sendBufferSize = 64
)

// FrameTypeChatMessage is the only inbound frame type acted on; the
// chat service emits the same type on the outbound side.
const FrameTypeChatMessage = "chat_message"

// InboundFrame is a frame received from a live connection. Only
// chat_message frames are acted on; anything else is dropped.
type InboundFrame struct {
	Type    string `json:"type"`
	MatchID uint64 `json:"matchId"`
	Content string `json:"content"`
}

// SendFunc hands an inbound chat frame to the messaging layer.
type SendFunc func(ctx context.Context, senderID, matchID uint64, content string) error

// Client is one live connection. The send channel feeds the write
// pump; reads happen on the read pump only.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uint64
	send   chan []byte

	closeOnce sync.Once
}

// NewClient wraps an upgraded connection for the given user.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// close shuts the underlying connection down. Safe to call more than
// once (registry eviction and pump teardown can race).
func (c *Client) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

// ReadPump consumes inbound frames until the connection drops and then
// unregisters the client. Malformed frames are logged and skipped;
// they never close the connection.
func (c *Client) ReadPump(sendMessage SendFunc) {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("relay read error", "user_id", c.userID, "err", err)
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.hub.logger.Warn("relay frame dropped, malformed json", "user_id", c.userID, "err", err)
			continue
		}

		if frame.Type != FrameTypeChatMessage {
			c.hub.logger.Debug("relay frame ignored", "user_id", c.userID, "type", frame.Type)
			continue
		}

		if err := sendMessage(context.Background(), c.userID, frame.MatchID, frame.Content); err != nil {
			c.hub.logger.Warn("relay frame rejected", "user_id", c.userID, "match_id", frame.MatchID, "err", err)
		}
	}
}

// WritePump drains the send channel into the connection and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
