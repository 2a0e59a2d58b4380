package relay_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amoradev/amora-backend/internal/relay"
)

type sentFrame struct {
	senderID uint64
	matchID  uint64
	content  string
}

// setupRelay starts an httptest server around the WebSocket handler.
// Inbound chat frames land on the returned channel instead of a real
// messaging layer.
func setupRelay(t *testing.T) (*relay.Hub, *httptest.Server, chan sentFrame) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := relay.NewHub(logger)

	sent := make(chan sentFrame, 16)
	handler := relay.NewHandler(hub, func(ctx context.Context, senderID, matchID uint64, content string) error {
		sent <- sentFrame{senderID: senderID, matchID: matchID, content: content}
		return nil
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return hub, srv, sent
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandler_RequiresUserID(t *testing.T) {
	_, srv, _ := setupRelay(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestPush_DeliversToLiveConnection(t *testing.T) {
	hub, srv, _ := setupRelay(t)
	conn := dial(t, srv, "1")

	require.Eventually(t, func() bool { return hub.Online(1) }, time.Second, 10*time.Millisecond)

	payload := []byte(`{"type":"chat_message","message":{"content":"hi"}}`)
	require.True(t, hub.Push(1, payload))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestPush_OfflineUser(t *testing.T) {
	hub, _, _ := setupRelay(t)

	assert.False(t, hub.Push(42, []byte("nobody home")))
}

func TestInboundFrame_ReachesMessagingLayer(t *testing.T) {
	hub, srv, sent := setupRelay(t)
	conn := dial(t, srv, "3")

	require.Eventually(t, func() bool { return hub.Online(3) }, time.Second, 10*time.Millisecond)

	frame := `{"type":"chat_message","matchId":7,"content":"hola"}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))

	select {
	case got := <-sent:
		assert.Equal(t, sentFrame{senderID: 3, matchID: 7, content: "hola"}, got)
	case <-time.After(time.Second):
		t.Fatal("inbound frame never reached the messaging layer")
	}
}

func TestInboundFrame_MalformedAndUnknownSkipped(t *testing.T) {
	hub, srv, sent := setupRelay(t)
	conn := dial(t, srv, "3")

	require.Eventually(t, func() bool { return hub.Online(3) }, time.Second, 10*time.Millisecond)

	// neither of these must kill the connection or produce a send
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{oops`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"typing"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat_message","matchId":1,"content":"still alive"}`)))

	select {
	case got := <-sent:
		assert.Equal(t, "still alive", got.content)
	case <-time.After(time.Second):
		t.Fatal("valid frame after malformed ones was not processed")
	}
	assert.True(t, hub.Online(3))
}

func TestRegister_ReconnectEvictsStaleConnection(t *testing.T) {
	hub, srv, _ := setupRelay(t)

	first := dial(t, srv, "5")
	require.Eventually(t, func() bool { return hub.Online(5) }, time.Second, 10*time.Millisecond)

	second := dial(t, srv, "5")

	// the stale connection gets closed server-side
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := first.ReadMessage()
	require.Error(t, err)

	// one live connection, and pushes land on the replacement
	assert.Equal(t, 1, hub.ClientCount())
	require.True(t, hub.Push(5, []byte("fresh")))

	require.NoError(t, second.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := second.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), data)
}

func TestUnregister_DropsOnDisconnect(t *testing.T) {
	hub, srv, _ := setupRelay(t)

	conn := dial(t, srv, "9")
	require.Eventually(t, func() bool { return hub.Online(9) }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !hub.Online(9) }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount())
}
