package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/folioserve/folio-live/internal/domain"
	"github.com/folioserve/folio-live/pkg/log"
)

// GormStore is the GORM-backed Store implementation.
type GormStore[T Entity[T]] struct {
	db    *gorm.DB
	order string
}

// NewGormStore creates a store for one collection. order is the SQL
// order clause used by List, e.g. "sort_order ASC, created_at DESC".
func NewGormStore[T Entity[T]](db *gorm.DB, order string) *GormStore[T] {
	if order == "" {
		order = "created_at DESC"
	}
	return &GormStore[T]{db: db, order: order}
}

func (s *GormStore[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := s.db.WithContext(ctx).Order(s.order).Find(&items).Error; err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list collection")
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (s *GormStore[T]) Get(ctx context.Context, id string) (T, error) {
	var item T
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return item, ErrNotFound
		}
		log.Ctx(ctx).Error().Err(err).Str("id", id).Msg("failed to get record")
		return item, err
	}
	return item, nil
}

func (s *GormStore[T]) Create(ctx context.Context, item T) error {
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to create record")
		return err
	}
	return nil
}

func (s *GormStore[T]) Update(ctx context.Context, item T) error {
	result := s.db.WithContext(ctx).Save(&item)
	if result.Error != nil {
		log.Ctx(ctx).Error().Err(result.Error).Msg("failed to update record")
		return result.Error
	}
	return nil
}

func (s *GormStore[T]) Delete(ctx context.Context, id string) error {
	var item T
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&item)
	if result.Error != nil {
		log.Ctx(ctx).Error().Err(result.Error).Str("id", id).Msg("failed to delete record")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GormAboutRepository persists the singleton about document.
type GormAboutRepository struct {
	db *gorm.DB
}

func NewGormAboutRepository(db *gorm.DB) *GormAboutRepository {
	return &GormAboutRepository{db: db}
}

func (r *GormAboutRepository) Get(ctx context.Context) (domain.About, error) {
	var about domain.About
	err := r.db.WithContext(ctx).First(&about, "id = ?", domain.AboutID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.About{ID: domain.AboutID}, nil
		}
		return about, err
	}
	return about, nil
}

func (r *GormAboutRepository) Save(ctx context.Context, about domain.About) error {
	about.ID = domain.AboutID
	return r.db.WithContext(ctx).Save(&about).Error
}

// GormUserRepository persists admin accounts.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	return count, err
}
