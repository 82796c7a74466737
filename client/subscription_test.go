package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// fakeSource stands in for a connected Client: it records room
// membership and lets tests emit events directly to handlers.
type fakeSource struct {
	mu       sync.Mutex
	handlers map[string]map[int]func(json.RawMessage)
	nextID   int
	joined   map[string]int
	left     map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		handlers: make(map[string]map[int]func(json.RawMessage)),
		joined:   make(map[string]int),
		left:     make(map[string]int),
	}
}

func (f *fakeSource) On(event string, fn func(json.RawMessage)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers[event] == nil {
		f.handlers[event] = make(map[int]func(json.RawMessage))
	}
	id := f.nextID
	f.nextID++
	f.handlers[event][id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers[event], id)
	}
}

func (f *fakeSource) Join(rooms ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rooms {
		f.joined[r]++
	}
	return nil
}

func (f *fakeSource) Leave(rooms ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rooms {
		f.left[r]++
	}
	return nil
}

func (f *fakeSource) emit(t *testing.T, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)

	f.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(f.handlers[event]))
	for _, fn := range f.handlers[event] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(raw)
	}
}

// apiServer serves GET /api/v1/skills with the response envelope and
// counts fetches.
type apiServer struct {
	*httptest.Server

	mu      sync.Mutex
	skills  []skill
	fetches int
	fail    bool
}

func newAPIServer(t *testing.T, initial []skill) *apiServer {
	t.Helper()
	s := &apiServer{skills: initial}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.fetches++
		if s.fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    s.skills,
		})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *apiServer) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func collectionEvent(items []skill) map[string]interface{} {
	return map[string]interface{}{
		"skill":  items[len(items)-1],
		"skills": items,
	}
}

func TestSubscription_InitialFetchAndJoin(t *testing.T) {
	srv := newAPIServer(t, []skill{{ID: "s1", Name: "Go"}})
	src := newFakeSource()

	sub := Subscribe[[]skill](src, srv.URL, Skills)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Close()

	assert.Equal(t, SubReady, sub.Status())
	require.Len(t, sub.Snapshot(), 1)
	assert.Equal(t, "s1", sub.Snapshot()[0].ID)

	src.mu.Lock()
	assert.Equal(t, 1, src.joined["skills"])
	src.mu.Unlock()
}

// joinEmitSource delivers an event the moment Join lands, the way a
// broadcast racing a fresh subscriber does.
type joinEmitSource struct {
	*fakeSource
	t     *testing.T
	event string
	data  interface{}
}

func (s *joinEmitSource) Join(rooms ...string) error {
	if err := s.fakeSource.Join(rooms...); err != nil {
		return err
	}
	s.emit(s.t, s.event, s.data)
	return nil
}

func TestSubscription_EventDuringJoinIsApplied(t *testing.T) {
	srv := newAPIServer(t, []skill{{ID: "s1", Name: "Go"}})
	next := []skill{{ID: "s1", Name: "Go"}, {ID: "s2", Name: "SQL"}}
	src := &joinEmitSource{
		fakeSource: newFakeSource(),
		t:          t,
		event:      "skill-created",
		data:       collectionEvent(next),
	}

	sub := Subscribe[[]skill](src, srv.URL, Skills)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Close()

	assert.Equal(t, next, sub.Snapshot())
}

func TestSubscription_ReplacesOnEvent(t *testing.T) {
	srv := newAPIServer(t, []skill{{ID: "s1", Name: "Go"}})
	src := newFakeSource()

	sub := Subscribe[[]skill](src, srv.URL, Skills)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Close()

	next := []skill{{ID: "s1", Name: "Go"}, {ID: "s2", Name: "SQL"}}
	src.emit(t, "skill-created", collectionEvent(next))

	assert.Equal(t, next, sub.Snapshot())

	// Replaying the same event is harmless: state is replaced, not
	// appended to.
	src.emit(t, "skill-created", collectionEvent(next))
	assert.Equal(t, next, sub.Snapshot())

	src.emit(t, "skill-deleted", map[string]interface{}{
		"deletedId": "s2",
		"skills":    next[:1],
	})
	assert.Equal(t, next[:1], sub.Snapshot())
}

func TestSubscription_TwoSubscribersConverge(t *testing.T) {
	srv := newAPIServer(t, []skill{{ID: "s1", Name: "Go"}})
	src := newFakeSource()

	a := Subscribe[[]skill](src, srv.URL, Skills)
	b := Subscribe[[]skill](src, srv.URL, Skills)
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))
	defer a.Close()
	defer b.Close()

	next := []skill{{ID: "s1", Name: "Go"}, {ID: "s2", Name: "SQL"}}
	src.emit(t, "skill-updated", collectionEvent(next))

	assert.Equal(t, next, a.Snapshot())
	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestSubscription_MalformedPayloadTriggersRefetch(t *testing.T) {
	current := []skill{{ID: "s1", Name: "Go"}}
	srv := newAPIServer(t, current)
	src := newFakeSource()

	sub := Subscribe[[]skill](src, srv.URL, Skills)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Close()
	baseline := srv.fetchCount()

	// Server state advances; the event arrives with the wrong payload
	// key, so the subscription must refetch rather than trust it.
	srv.mu.Lock()
	srv.skills = []skill{{ID: "s1", Name: "Go"}, {ID: "s2", Name: "SQL"}}
	srv.mu.Unlock()

	src.emit(t, "skill-created", map[string]interface{}{"wrong": "shape"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(sub.Snapshot()) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, sub.Snapshot(), 2)
	assert.Greater(t, srv.fetchCount(), baseline)

	// Wrong element type inside the collection key behaves the same.
	src.emit(t, "skill-updated", map[string]interface{}{"skills": "not-a-list"})
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sub.Snapshot(), 2)
}

func TestSubscription_FetchFailureUsesFallback(t *testing.T) {
	srv := newAPIServer(t, nil)
	srv.mu.Lock()
	srv.fail = true
	srv.mu.Unlock()
	src := newFakeSource()

	fallback := []skill{{ID: "static", Name: "Go"}}
	sub := Subscribe[[]skill](src, srv.URL, Skills, WithFallback[[]skill](fallback))

	err := sub.Start(context.Background())
	assert.Error(t, err)
	defer sub.Close()

	assert.Equal(t, SubError, sub.Status())
	assert.Equal(t, fallback, sub.Snapshot())

	// A later live event still repairs the dataset.
	live := []skill{{ID: "s1", Name: "Go"}}
	src.emit(t, "skill-created", collectionEvent(live))
	assert.Equal(t, live, sub.Snapshot())
	assert.Equal(t, SubReady, sub.Status())
}

func TestSubscription_CloseStopsUpdates(t *testing.T) {
	srv := newAPIServer(t, []skill{{ID: "s1", Name: "Go"}})
	src := newFakeSource()

	sub := Subscribe[[]skill](src, srv.URL, Skills)
	require.NoError(t, sub.Start(context.Background()))
	before := sub.Snapshot()

	sub.Close()

	src.emit(t, "skill-created", collectionEvent([]skill{{ID: "s2"}}))
	assert.Equal(t, before, sub.Snapshot())

	src.mu.Lock()
	assert.Equal(t, 1, src.left["skills"])
	src.mu.Unlock()
}

func TestSubscription_OnChange(t *testing.T) {
	srv := newAPIServer(t, []skill{{ID: "s1", Name: "Go"}})
	src := newFakeSource()

	var mu sync.Mutex
	var snapshots [][]skill
	sub := Subscribe[[]skill](src, srv.URL, Skills, WithOnChange[[]skill](func(s []skill) {
		mu.Lock()
		snapshots = append(snapshots, s)
		mu.Unlock()
	}))
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Close()

	src.emit(t, "skill-updated", collectionEvent([]skill{{ID: "s1", Name: "Golang"}}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snapshots, 2)
	assert.Equal(t, "Go", snapshots[0][0].Name)
	assert.Equal(t, "Golang", snapshots[1][0].Name)
}

func TestSubscription_SingletonValue(t *testing.T) {
	type aboutDoc struct {
		ID  string `json:"id"`
		Bio string `json:"bio"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    aboutDoc{ID: "about", Bio: "hello"},
		})
	}))
	defer srv.Close()
	src := newFakeSource()

	sub := Subscribe[aboutDoc](src, srv.URL, About)
	require.NoError(t, sub.Start(context.Background()))
	defer sub.Close()

	assert.Equal(t, "hello", sub.Snapshot().Bio)

	src.emit(t, "about-updated", map[string]interface{}{
		"about": aboutDoc{ID: "about", Bio: "updated"},
	})
	assert.Equal(t, "updated", sub.Snapshot().Bio)
}
