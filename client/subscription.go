package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Source is the slice of Client a Subscription needs. Satisfied by
// *Client; tests supply fakes.
type Source interface {
	On(event string, fn func(json.RawMessage)) func()
	Join(rooms ...string) error
	Leave(rooms ...string) error
}

// SubStatus is the data-loading state of a Subscription, independent
// of transport state.
type SubStatus string

const (
	SubIdle    SubStatus = "idle"
	SubLoading SubStatus = "loading"
	SubReady   SubStatus = "ready"
	SubError   SubStatus = "error"
)

// Domain describes one subscribable dataset: which room carries its
// events, how events are named, which payload key holds the fresh
// snapshot, and where the HTTP snapshot lives.
type Domain struct {
	Room        string
	EventPrefix string
	PayloadKey  string
	Path        string
}

// Well-known datasets matching the server's REST and room layout.
var (
	Projects        = Domain{Room: "projects", EventPrefix: "project", PayloadKey: "projects", Path: "/api/v1/projects"}
	Skills          = Domain{Room: "skills", EventPrefix: "skill", PayloadKey: "skills", Path: "/api/v1/skills"}
	Certificates    = Domain{Room: "certificates", EventPrefix: "certificate", PayloadKey: "certificates", Path: "/api/v1/certificates"}
	About           = Domain{Room: "about", EventPrefix: "about", PayloadKey: "about", Path: "/api/v1/about"}
	ContactMessages = Domain{Room: "contact", EventPrefix: "contact", PayloadKey: "messages", Path: "/api/v1/contact"}
)

type httpEnvelope[S any] struct {
	Success bool            `json:"success"`
	Data    S               `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// Subscription keeps one dataset S (a collection slice, or a singleton
// value such as the about document) synchronized with the server:
// initial HTTP fetch, then wholesale replacement from room events. A
// malformed event payload never corrupts state; it triggers a
// background refetch instead.
type Subscription[S any] struct {
	source  Source
	httpc   *http.Client
	baseURL string
	domain  Domain

	mu       sync.Mutex
	status   SubStatus
	data     S
	err      error
	closed   bool
	offs     []func()
	onChange func(S)

	fallback    *S
	hasFallback bool

	refetchWG sync.WaitGroup
}

// SubOption configures a Subscription.
type SubOption[S any] func(*Subscription[S])

// WithFallback supplies a static dataset shown when the initial fetch
// fails.
func WithFallback[S any](data S) SubOption[S] {
	return func(s *Subscription[S]) {
		s.fallback = &data
		s.hasFallback = true
	}
}

// WithHTTPClient overrides the HTTP client used for snapshot fetches.
func WithHTTPClient[S any](c *http.Client) SubOption[S] {
	return func(s *Subscription[S]) { s.httpc = c }
}

// WithOnChange registers a callback invoked with each new snapshot.
func WithOnChange[S any](fn func(S)) SubOption[S] {
	return func(s *Subscription[S]) { s.onChange = fn }
}

// Subscribe builds a subscription for one dataset. baseURL is the HTTP
// origin of the API, e.g. "http://localhost:8080". Call Start to load.
func Subscribe[S any](source Source, baseURL string, d Domain, opts ...SubOption[S]) *Subscription[S] {
	s := &Subscription[S]{
		source:  source,
		httpc:   http.DefaultClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		domain:  d,
		status:  SubIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start fetches the initial snapshot, joins the dataset's room, and
// registers event handlers. It blocks until the initial fetch
// resolves; a fetch failure leaves the subscription live (events and
// refetches still repair it) with the fallback dataset, if any.
func (s *Subscription[S]) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("subscription closed")
	}
	s.status = SubLoading
	s.mu.Unlock()

	data, err := s.fetch(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.status = SubError
		s.err = err
		if s.hasFallback {
			s.data = *s.fallback
		}
	} else {
		s.status = SubReady
		s.err = nil
		s.data = data
	}
	s.mu.Unlock()

	if err == nil {
		s.notify(data)
	} else if s.hasFallback {
		s.notify(*s.fallback)
	}

	// Listeners go in before the join so a broadcast arriving the
	// instant membership takes effect is still observed.
	handle := s.handleEvent
	s.mu.Lock()
	if !s.closed {
		for _, action := range []string{"created", "updated", "deleted"} {
			event := s.domain.EventPrefix + "-" + action
			s.offs = append(s.offs, s.source.On(event, handle))
		}
	}
	s.mu.Unlock()

	if joinErr := s.source.Join(s.domain.Room); joinErr != nil && err == nil {
		err = joinErr
	}

	return err
}

// handleEvent replaces the dataset from the event's full-collection
// payload. Any shape problem falls back to an HTTP refetch.
func (s *Subscription[S]) handleEvent(data json.RawMessage) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		s.refetchAsync()
		return
	}
	raw, ok := payload[s.domain.PayloadKey]
	if !ok {
		s.refetchAsync()
		return
	}
	var next S
	if err := json.Unmarshal(raw, &next); err != nil {
		s.refetchAsync()
		return
	}
	s.replace(next)
}

func (s *Subscription[S]) replace(next S) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.data = next
	s.status = SubReady
	s.err = nil
	s.mu.Unlock()

	s.notify(next)
}

func (s *Subscription[S]) notify(data S) {
	s.mu.Lock()
	fn := s.onChange
	closed := s.closed
	s.mu.Unlock()
	if fn != nil && !closed {
		fn(data)
	}
}

func (s *Subscription[S]) refetchAsync() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.refetchWG.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.refetchWG.Done()
		data, err := s.fetch(context.Background())
		if err != nil {
			return // keep last good state
		}
		s.replace(data)
	}()
}

func (s *Subscription[S]) fetch(ctx context.Context) (S, error) {
	var zero S

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+s.domain.Path, nil)
	if err != nil {
		return zero, err
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return zero, fmt.Errorf("fetch %s: status %d", s.domain.Path, resp.StatusCode)
	}

	var env httpEnvelope[S]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return zero, fmt.Errorf("fetch %s: %w", s.domain.Path, err)
	}
	if !env.Success {
		return zero, fmt.Errorf("fetch %s: server error", s.domain.Path)
	}
	return env.Data, nil
}

// Snapshot returns the current dataset.
func (s *Subscription[S]) Snapshot() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Status returns the loading state.
func (s *Subscription[S]) Status() SubStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the last fetch error, if the subscription is in SubError.
func (s *Subscription[S]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close unregisters all handlers and leaves the room. Events arriving
// after Close do not touch the dataset.
func (s *Subscription[S]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	offs := s.offs
	s.offs = nil
	s.mu.Unlock()

	for _, off := range offs {
		off()
	}
	s.source.Leave(s.domain.Room)
	s.refetchWG.Wait()
}
