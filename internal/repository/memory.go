package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/folioserve/folio-live/internal/domain"
)

// MemoryStore is an in-memory Store used in tests and for running
// without a database. List returns items newest-first, matching the
// default SQL ordering.
type MemoryStore[T Entity[T]] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewMemoryStore[T Entity[T]]() *MemoryStore[T] {
	return &MemoryStore[T]{items: make(map[string]T)}
}

func (s *MemoryStore[T]) List(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]T, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedTime().After(items[j].CreatedTime())
	})
	return items, nil
}

func (s *MemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return item, nil
}

func (s *MemoryStore[T]) Create(ctx context.Context, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.EntityID()] = item
	return nil
}

func (s *MemoryStore[T]) Update(ctx context.Context, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.EntityID()]; !ok {
		return ErrNotFound
	}
	s.items[item.EntityID()] = item
	return nil
}

func (s *MemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// MemoryAboutRepository holds the about document in memory.
type MemoryAboutRepository struct {
	mu    sync.RWMutex
	about domain.About
	set   bool
}

func NewMemoryAboutRepository() *MemoryAboutRepository {
	return &MemoryAboutRepository{}
}

func (r *MemoryAboutRepository) Get(ctx context.Context) (domain.About, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.set {
		return domain.About{ID: domain.AboutID}, nil
	}
	return r.about, nil
}

func (r *MemoryAboutRepository) Save(ctx context.Context, about domain.About) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	about.ID = domain.AboutID
	r.about = about
	r.set = true
	return nil
}

// MemoryUserRepository holds admin accounts in memory.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User // keyed by email
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*domain.User)}
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.Email] = &copied
	return nil
}

func (r *MemoryUserRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}
