package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/folioserve/folio-live/internal/audit"
	"github.com/folioserve/folio-live/internal/cache"
	"github.com/folioserve/folio-live/internal/realtime"
	"github.com/folioserve/folio-live/internal/repository"
	"github.com/folioserve/folio-live/pkg/log"
)

var ErrNotFound = errors.New("not found")

// Content is the CRUD service for one content collection. After every
// successful write it re-reads the whole collection from storage and
// hands it to the notifier, so broadcast payloads are fresh even under
// concurrent writers. Broadcast problems never fail the operation.
type Content[T repository.Entity[T]] struct {
	store    repository.Store[T]
	notifier *realtime.Notifier
	domain   realtime.Domain

	cache    cache.CollectionCache // optional
	cacheTTL time.Duration
	sf       singleflight.Group

	describe func(T) string // optional; enables admin toasts
}

// ContentOption tunes a Content service.
type ContentOption[T repository.Entity[T]] func(*Content[T])

// WithCache enables the read-path collection cache.
func WithCache[T repository.Entity[T]](c cache.CollectionCache, ttl time.Duration) ContentOption[T] {
	return func(s *Content[T]) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithAdminToasts makes every mutation also emit an admin-notification
// toast, using describe to produce the human-readable subject.
func WithAdminToasts[T repository.Entity[T]](describe func(T) string) ContentOption[T] {
	return func(s *Content[T]) {
		s.describe = describe
	}
}

// NewContent creates the service for one collection.
func NewContent[T repository.Entity[T]](store repository.Store[T], notifier *realtime.Notifier, d realtime.Domain, opts ...ContentOption[T]) *Content[T] {
	s := &Content[T]{
		store:    store,
		notifier: notifier,
		domain:   d,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the full collection, serving from cache when possible.
// Concurrent cache misses are collapsed into one storage read.
func (s *Content[T]) List(ctx context.Context) ([]T, error) {
	if s.cache == nil {
		return s.store.List(ctx)
	}

	if data, err := s.cache.Get(ctx, s.domain.Room); err == nil {
		var items []T
		if err := json.Unmarshal(data, &items); err == nil {
			return items, nil
		}
		// Corrupt cache entry; fall through to storage.
		_ = s.cache.Invalidate(ctx, s.domain.Room)
	}

	v, err, _ := s.sf.Do(s.domain.Room, func() (interface{}, error) {
		items, err := s.store.List(ctx)
		if err != nil {
			return nil, err
		}
		s.fillCache(ctx, items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

// Get returns one entity.
func (s *Content[T]) Get(ctx context.Context, id string) (T, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return item, ErrNotFound
		}
		return item, err
	}
	return item, nil
}

// Create stores a new entity, then broadcasts the refreshed collection.
func (s *Content[T]) Create(ctx context.Context, item T) (T, error) {
	now := time.Now().UTC()
	id := item.EntityID()
	if id == "" {
		id = uuid.New().String()
	}
	item = item.WithMeta(id, now, now)

	if err := s.store.Create(ctx, item); err != nil {
		var zero T
		return zero, err
	}

	audit.Log(ctx, audit.ActionContentCreate, s.domain.Room, id, "content created")

	all := s.refreshed(ctx)
	s.notifier.Created(ctx, s.domain, item, all)
	s.toast(ctx, realtime.ActionCreated, item)
	return item, nil
}

// Update replaces an existing entity, then broadcasts the refreshed
// collection. The original creation time is preserved.
func (s *Content[T]) Update(ctx context.Context, id string, item T) (T, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		var zero T
		if errors.Is(err, repository.ErrNotFound) {
			return zero, ErrNotFound
		}
		return zero, err
	}

	item = item.WithMeta(id, existing.CreatedTime(), time.Now().UTC())
	if err := s.store.Update(ctx, item); err != nil {
		var zero T
		return zero, err
	}

	audit.Log(ctx, audit.ActionContentUpdate, s.domain.Room, id, "content updated")

	all := s.refreshed(ctx)
	s.notifier.Updated(ctx, s.domain, item, all)
	s.toast(ctx, realtime.ActionUpdated, item)
	return item, nil
}

// Delete removes an entity, then broadcasts the remaining collection
// along with the deleted id.
func (s *Content[T]) Delete(ctx context.Context, id string) error {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	audit.Log(ctx, audit.ActionContentDelete, s.domain.Room, id, "content deleted")

	all := s.refreshed(ctx)
	s.notifier.Deleted(ctx, s.domain, id, all)
	s.toast(ctx, realtime.ActionDeleted, item)
	return nil
}

// refreshed re-reads the full collection from storage after a write
// and refreshes the cache. A failed read yields an empty collection in
// the broadcast; subscribers recover on their next fetch.
func (s *Content[T]) refreshed(ctx context.Context) []T {
	items, err := s.store.List(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("domain", s.domain.Room).Msg("failed to re-read collection after write")
		return []T{}
	}
	s.fillCache(ctx, items)
	return items
}

func (s *Content[T]) fillCache(ctx context.Context, items []T) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.domain.Room, data, s.cacheTTL); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("domain", s.domain.Room).Msg("failed to refresh collection cache")
	}
}

func (s *Content[T]) toast(ctx context.Context, action string, item T) {
	if s.describe == nil {
		return
	}
	s.notifier.AdminNotify(ctx, s.domain.Prefix, action,
		realtime.DescribeMutation(s.domain, action, s.describe(item)))
}
