package hub

import (
	"encoding/json"
	"sync"

	"github.com/folioserve/folio-live/internal/domain"
	"github.com/folioserve/folio-live/pkg/log"
)

// Hub tracks connected clients and their room memberships and fans
// events out to rooms. It holds no durable state: rooms exist only as
// long as they have members, and a disconnecting client is removed
// from every room it joined.
//
// One Hub is constructed at startup and passed to every component that
// emits events; there is no package-level instance.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // clientID -> client
	rooms   map[string]map[string]*Client // room -> clientID -> client
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// Register adds a connected client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	log.L().Debug().Str(log.FieldClientID, c.ID).Msg("client registered")
}

// Unregister removes a client from the hub and from every room it
// joined, and closes its send channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for room, members := range h.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.closeSend()
	h.mu.Unlock()

	log.L().Debug().Str(log.FieldClientID, c.ID).Msg("client unregistered")
}

// Join adds the client to a room. Rooms are created on demand and
// joining twice has the effect of joining once.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][c.ID] = c
	c.trackJoin(room)

	log.L().Debug().Str(log.FieldClientID, c.ID).Str(log.FieldRoom, room).Msg("client joined room")
}

// Leave removes the client from a room. No-op if not a member.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.trackLeave(room)
}

// Broadcast marshals (event, data) into an event frame and delivers it
// to every member of the room. Delivery is fire-and-forget: a room with
// no members is a no-op, and a slow consumer whose send buffer is full
// is evicted rather than blocking the caller. Returns the number of
// clients the frame was queued for.
func (h *Hub) Broadcast(room, event string, data interface{}) (int, error) {
	frame, err := json.Marshal(domain.Event{Event: event, Data: data})
	if err != nil {
		return 0, err
	}

	// Sends happen under the read lock so Unregister cannot close a
	// send channel mid-delivery.
	delivered := 0
	var evicted []*Client
	h.mu.RLock()
	for _, c := range h.rooms[room] {
		select {
		case c.Send <- frame:
			delivered++
		default:
			evicted = append(evicted, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range evicted {
		h.Unregister(c)
	}

	return delivered, nil
}

// RoomCount returns the number of clients currently in a room.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
