package repository

import (
	"context"
	"errors"
	"time"

	"github.com/folioserve/folio-live/internal/domain"
)

var ErrNotFound = errors.New("record not found")

// Entity is the contract collection entities satisfy so the generic
// store can manage identity and timestamps without per-type code.
type Entity[T any] interface {
	EntityID() string
	CreatedTime() time.Time
	WithMeta(id string, created, updated time.Time) T
}

// Store is the opaque CRUD contract for one content collection.
type Store[T Entity[T]] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, item T) error
	Update(ctx context.Context, item T) error
	Delete(ctx context.Context, id string) error
}

// AboutRepository manages the singleton about document.
type AboutRepository interface {
	Get(ctx context.Context) (domain.About, error)
	Save(ctx context.Context, about domain.About) error
}

// UserRepository manages admin accounts.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Count(ctx context.Context) (int64, error)
}
