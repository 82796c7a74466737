package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioserve/folio-live/internal/domain"
	"github.com/folioserve/folio-live/internal/hub"
	"github.com/folioserve/folio-live/internal/realtime"
)

func testWSConfig() hub.Config {
	return hub.Config{
		PingInterval:   10 * time.Second,
		PongWait:       30 * time.Second,
		WriteWait:      5 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     16,
	}
}

type wsFixture struct {
	hub    *hub.Hub
	server *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := hub.New()
	wsHandler := NewWSHandler(h, realtime.NewNotifier(h), testWSConfig())

	router := gin.New()
	router.GET("/ws", wsHandler.HandleWebSocket)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &wsFixture{hub: h, server: server}
}

func (f *wsFixture) connect(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var env struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &env))
	return env.Event, env.Data
}

func waitForRoom(t *testing.T, h *hub.Hub, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.RoomCount(room) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %s never reached %d members", room, want)
}

func TestWSHandler_JoinAndReceive(t *testing.T) {
	f := newWSFixture(t)
	conn := f.connect(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":  "join",
		"rooms": []string{domain.RoomSkills},
	}))
	waitForRoom(t, f.hub, domain.RoomSkills, 1)

	delivered, err := f.hub.Broadcast(domain.RoomSkills, "skill-created", map[string]string{"id": "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	event, data := readEvent(t, conn)
	assert.Equal(t, "skill-created", event)
	assert.Contains(t, string(data), "s1")
}

func TestWSHandler_SingleRoomStringForm(t *testing.T) {
	f := newWSFixture(t)
	conn := f.connect(t)

	// "rooms" accepts a bare string as well as an array.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"join","rooms":"projects"}`)))
	waitForRoom(t, f.hub, domain.RoomProjects, 1)
}

func TestWSHandler_LeaveStopsDelivery(t *testing.T) {
	f := newWSFixture(t)
	conn := f.connect(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":  "join",
		"rooms": []string{domain.RoomProjects},
	}))
	waitForRoom(t, f.hub, domain.RoomProjects, 1)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":  "leave",
		"rooms": []string{domain.RoomProjects},
	}))
	waitForRoom(t, f.hub, domain.RoomProjects, 0)

	delivered, err := f.hub.Broadcast(domain.RoomProjects, "project-created", nil)
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestWSHandler_MalformedFrameKeepsConnection(t *testing.T) {
	f := newWSFixture(t)
	conn := f.connect(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var errFrame domain.ErrorMessage
	require.NoError(t, json.Unmarshal(msg, &errFrame))
	assert.Equal(t, "error", errFrame.Event)
	assert.Equal(t, domain.ErrCodeBadRequest, errFrame.Code)

	// The connection survives and the client can still join.
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":  "join",
		"rooms": []string{domain.RoomSkills},
	}))
	waitForRoom(t, f.hub, domain.RoomSkills, 1)
}

func TestWSHandler_PingPong(t *testing.T) {
	f := newWSFixture(t)
	conn := f.connect(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var pong map[string]string
	require.NoError(t, json.Unmarshal(msg, &pong))
	assert.Equal(t, domain.MsgTypePong, pong["type"])
}

func TestWSHandler_VisitorCountOnOpenAndClose(t *testing.T) {
	f := newWSFixture(t)

	watcher := f.connect(t)
	require.NoError(t, watcher.WriteJSON(map[string]interface{}{
		"type":  "join",
		"rooms": []string{domain.RoomVisitors},
	}))
	waitForRoom(t, f.hub, domain.RoomVisitors, 1)

	second := f.connect(t)
	event, data := readEvent(t, watcher)
	assert.Equal(t, "visitors-updated", event)
	var count domain.VisitorCount
	require.NoError(t, json.Unmarshal(data, &count))
	assert.Equal(t, 2, count.Count)

	second.Close()
	event, data = readEvent(t, watcher)
	assert.Equal(t, "visitors-updated", event)
	require.NoError(t, json.Unmarshal(data, &count))
	assert.Equal(t, 1, count.Count)
}

func TestWSHandler_DisconnectCleansUp(t *testing.T) {
	f := newWSFixture(t)
	conn := f.connect(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":  "join",
		"rooms": []string{domain.RoomSkills, domain.RoomProjects},
	}))
	waitForRoom(t, f.hub, domain.RoomSkills, 1)
	waitForRoom(t, f.hub, domain.RoomProjects, 1)

	conn.Close()

	waitForRoom(t, f.hub, domain.RoomSkills, 0)
	waitForRoom(t, f.hub, domain.RoomProjects, 0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && f.hub.ClientCount() > 0 {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Zero(t, f.hub.ClientCount())
}
