// Package client is the Go subscriber SDK for the folio-live realtime
// API. It mirrors what the browser dashboard does: fetch a full
// snapshot over HTTP, join rooms over WebSocket, and replace local
// state wholesale whenever a mutation event arrives.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Status is the connection lifecycle state.
type Status string

const (
	// StatusDisconnected is the initial state and the state after a
	// mid-session drop while reconnection is still being attempted.
	StatusDisconnected Status = "disconnected"
	// StatusConnected means the transport is live.
	StatusConnected Status = "connected"
	// StatusOffline is terminal: the retry budget is exhausted and no
	// further automatic attempts will be made until Start is called
	// again.
	StatusOffline Status = "offline"
)

// Config tunes a Client.
type Config struct {
	// URL is the WebSocket endpoint, e.g. "ws://localhost:8080/ws".
	URL string
	// Rooms are always-on rooms, re-joined in one batched frame after
	// every (re)connect.
	Rooms []string
	// MaxRetries caps consecutive failed connection attempts before
	// the client settles into StatusOffline. Defaults to 3.
	MaxRetries int
	// RetryInterval is the fixed wait between attempts. Defaults to 2s.
	RetryInterval time.Duration
	// OnStatusChange, when set, observes lifecycle transitions. Never
	// invoked after Close.
	OnStatusChange func(Status)
}

type eventEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type clientFrame struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms,omitempty"`
}

// Client maintains one WebSocket connection with bounded-retry
// reconnection and dispatches incoming events to registered handlers.
type Client struct {
	cfg  Config
	dial func(ctx context.Context, url string) (*websocket.Conn, error)

	// writeMu serializes outgoing frames: gorilla/websocket allows only
	// one concurrent writer, and Join/Leave run on caller goroutines
	// while rejoinAll runs on the connection loop.
	writeMu sync.Mutex

	mu        sync.Mutex
	conn      *websocket.Conn
	status    Status
	closed    bool
	handlers  map[string]map[int]func(json.RawMessage)
	nextID    int
	joined    map[string]struct{}
	attempts  int
	runCtx    context.Context
	runCancel context.CancelFunc
	done      chan struct{}
}

// New creates a client. Call Start to connect.
func New(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 2 * time.Second
	}
	return &Client{
		cfg:    cfg,
		status: StatusDisconnected,
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
		handlers: make(map[string]map[int]func(json.RawMessage)),
		joined:   make(map[string]struct{}),
	}
}

// Start launches the connection loop. It returns immediately; observe
// progress through Status or OnStatusChange. Calling Start on a
// running client is a no-op.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.done != nil && !c.isDoneLocked() {
		c.mu.Unlock()
		return
	}
	c.closed = false
	c.attempts = 0
	c.runCtx, c.runCancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	done := c.done
	runCtx := c.runCtx
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.run(runCtx)
	}()
}

func (c *Client) isDoneLocked() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the connection loop has exited,
// either because the retry budget ran out or Close was called.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Client) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx, c.cfg.URL)
		if err != nil {
			c.mu.Lock()
			c.attempts++
			exhausted := c.attempts >= c.cfg.MaxRetries
			c.mu.Unlock()

			if exhausted {
				c.setStatus(StatusOffline)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(c.cfg.RetryInterval):
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.attempts = 0
		c.mu.Unlock()

		c.setStatus(StatusConnected)
		c.rejoinAll()

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		closed := c.closed
		c.mu.Unlock()
		if closed || ctx.Err() != nil {
			return
		}

		// Mid-session drop: last known data stays with subscribers;
		// only the indicator flips while we retry.
		c.setStatus(StatusDisconnected)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return
		}

		var env eventEnvelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			continue
		}
		c.dispatch(env.Event, env.Data)
	}
}

func (c *Client) dispatch(event string, data json.RawMessage) {
	c.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(c.handlers[event]))
	for _, fn := range c.handlers[event] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}

// On registers a handler for one event name and returns an
// unsubscribe func. Handlers registered after Close never fire.
func (c *Client) On(event string, fn func(json.RawMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]func(json.RawMessage))
	}
	id := c.nextID
	c.nextID++
	c.handlers[event][id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[event], id)
		if len(c.handlers[event]) == 0 {
			delete(c.handlers, event)
		}
	}
}

// Join subscribes to rooms. Membership is remembered and re-joined
// after reconnects.
func (c *Client) Join(rooms ...string) error {
	c.mu.Lock()
	for _, r := range rooms {
		c.joined[r] = struct{}{}
	}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil // joined on next connect
	}
	return c.writeJSON(conn, clientFrame{Type: "join", Rooms: rooms})
}

// Leave unsubscribes from rooms.
func (c *Client) Leave(rooms ...string) error {
	c.mu.Lock()
	for _, r := range rooms {
		delete(c.joined, r)
	}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.writeJSON(conn, clientFrame{Type: "leave", Rooms: rooms})
}

// rejoinAll sends one batched join for the always-on rooms plus any
// rooms joined since.
func (c *Client) rejoinAll() {
	c.mu.Lock()
	set := make(map[string]struct{}, len(c.joined)+len(c.cfg.Rooms))
	for _, r := range c.cfg.Rooms {
		set[r] = struct{}{}
	}
	for r := range c.joined {
		set[r] = struct{}{}
	}
	rooms := make([]string, 0, len(set))
	for r := range set {
		rooms = append(rooms, r)
	}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || len(rooms) == 0 {
		return
	}
	c.writeJSON(conn, clientFrame{Type: "join", Rooms: rooms})
}

func (c *Client) writeJSON(conn *websocket.Conn, v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// Status returns the current lifecycle state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	if c.closed || c.status == s {
		c.mu.Unlock()
		return
	}
	c.status = s
	cb := c.cfg.OnStatusChange
	c.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}

// Close disconnects immediately and abandons any in-flight
// reconnection attempt. No status callbacks fire afterward.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.status = StatusDisconnected
	conn := c.conn
	cancel := c.runCancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
}
