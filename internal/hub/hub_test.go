package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h *Hub, id string) *Client {
	t.Helper()
	return NewClient(id, h, nil, Config{SendBuffer: 8})
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHub_Broadcast(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(h *Hub) map[string]*Client
		room          string
		wantDelivered int
		wantReceived  map[string]int
	}{
		{
			name: "delivers to every room member",
			setup: func(h *Hub) map[string]*Client {
				a := newTestClient(t, h, "a")
				b := newTestClient(t, h, "b")
				h.Register(a)
				h.Register(b)
				h.Join(a, "projects")
				h.Join(b, "projects")
				return map[string]*Client{"a": a, "b": b}
			},
			room:          "projects",
			wantDelivered: 2,
			wantReceived:  map[string]int{"a": 1, "b": 1},
		},
		{
			name: "no cross-room delivery",
			setup: func(h *Hub) map[string]*Client {
				a := newTestClient(t, h, "a")
				b := newTestClient(t, h, "b")
				h.Register(a)
				h.Register(b)
				h.Join(a, "projects")
				h.Join(b, "skills")
				return map[string]*Client{"a": a, "b": b}
			},
			room:          "projects",
			wantDelivered: 1,
			wantReceived:  map[string]int{"a": 1, "b": 0},
		},
		{
			name: "empty room is a no-op",
			setup: func(h *Hub) map[string]*Client {
				a := newTestClient(t, h, "a")
				h.Register(a)
				return map[string]*Client{"a": a}
			},
			room:          "projects",
			wantDelivered: 0,
			wantReceived:  map[string]int{"a": 0},
		},
		{
			name: "double join delivers once",
			setup: func(h *Hub) map[string]*Client {
				a := newTestClient(t, h, "a")
				h.Register(a)
				h.Join(a, "projects")
				h.Join(a, "projects")
				return map[string]*Client{"a": a}
			},
			room:          "projects",
			wantDelivered: 1,
			wantReceived:  map[string]int{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			clients := tt.setup(h)

			delivered, err := h.Broadcast(tt.room, "project-updated", map[string]string{"id": "p1"})

			require.NoError(t, err)
			assert.Equal(t, tt.wantDelivered, delivered)
			for id, c := range clients {
				assert.Len(t, drain(c), tt.wantReceived[id], "client %s", id)
			}
		})
	}
}

func TestHub_BroadcastFrameShape(t *testing.T) {
	h := New()
	c := newTestClient(t, h, "a")
	h.Register(c)
	h.Join(c, "skills")

	_, err := h.Broadcast("skills", "skill-created", map[string]interface{}{
		"skill":  map[string]string{"id": "s1"},
		"skills": []map[string]string{{"id": "s1"}},
	})
	require.NoError(t, err)

	frames := drain(c)
	require.Len(t, frames, 1)

	var got struct {
		Event string `json:"event"`
		Data  struct {
			Skill  map[string]string   `json:"skill"`
			Skills []map[string]string `json:"skills"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frames[0], &got))
	assert.Equal(t, "skill-created", got.Event)
	assert.Equal(t, "s1", got.Data.Skill["id"])
	require.Len(t, got.Data.Skills, 1)
}

func TestHub_BroadcastUnmarshalableData(t *testing.T) {
	h := New()
	c := newTestClient(t, h, "a")
	h.Register(c)
	h.Join(c, "projects")

	delivered, err := h.Broadcast("projects", "project-updated", make(chan int))

	assert.Error(t, err)
	assert.Zero(t, delivered)
	assert.Empty(t, drain(c))
}

func TestHub_BroadcastEvictsSlowConsumer(t *testing.T) {
	h := New()
	slow := NewClient("slow", h, nil, Config{SendBuffer: 1})
	h.Register(slow)
	h.Join(slow, "projects")

	delivered, err := h.Broadcast("projects", "project-updated", "one")
	require.NoError(t, err)
	require.Equal(t, 1, delivered)

	// Buffer is full now; the next broadcast evicts instead of blocking.
	delivered, err = h.Broadcast("projects", "project-updated", "two")
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Zero(t, h.ClientCount())
}

func TestHub_UnregisterCleansRooms(t *testing.T) {
	h := New()
	a := newTestClient(t, h, "a")
	b := newTestClient(t, h, "b")
	h.Register(a)
	h.Register(b)
	h.Join(a, "projects")
	h.Join(a, "skills")
	h.Join(b, "projects")

	h.Unregister(a)

	assert.Equal(t, 1, h.ClientCount())
	assert.Equal(t, 1, h.RoomCount("projects"))
	assert.Zero(t, h.RoomCount("skills"))

	delivered, err := h.Broadcast("projects", "project-updated", "x")
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
}

func TestHub_UnregisterTwice(t *testing.T) {
	h := New()
	c := newTestClient(t, h, "a")
	h.Register(c)
	h.Join(c, "projects")

	h.Unregister(c)
	assert.NotPanics(t, func() { h.Unregister(c) })
	assert.Zero(t, h.ClientCount())
}

func TestHub_SendMessageAfterUnregister(t *testing.T) {
	h := New()
	c := newTestClient(t, h, "a")
	h.Register(c)
	h.Join(c, "projects")

	// Eviction can close the send channel while the read-pump handler is
	// still answering frames on the same client.
	h.Unregister(c)

	assert.NotPanics(t, func() {
		assert.NoError(t, c.SendMessage(map[string]string{"event": "pong"}))
	})
}

func TestHub_LeaveIdempotent(t *testing.T) {
	h := New()
	c := newTestClient(t, h, "a")
	h.Register(c)
	h.Join(c, "projects")

	h.Leave(c, "projects")
	h.Leave(c, "projects")
	h.Leave(c, "never-joined")

	assert.Zero(t, h.RoomCount("projects"))
	assert.Empty(t, c.Rooms())
	assert.Equal(t, 1, h.ClientCount())
}

func TestHub_JoinBeforeRegister(t *testing.T) {
	h := New()
	c := newTestClient(t, h, "a")

	h.Join(c, "projects")

	assert.Zero(t, h.RoomCount("projects"))
}
