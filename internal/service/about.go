package service

import (
	"context"
	"time"

	"github.com/folioserve/folio-live/internal/audit"
	"github.com/folioserve/folio-live/internal/domain"
	"github.com/folioserve/folio-live/internal/realtime"
	"github.com/folioserve/folio-live/internal/repository"
)

// AboutService manages the singleton about document. Updates broadcast
// the fresh document to the about room.
type AboutService struct {
	repo     repository.AboutRepository
	notifier *realtime.Notifier
}

func NewAboutService(repo repository.AboutRepository, notifier *realtime.Notifier) *AboutService {
	return &AboutService{repo: repo, notifier: notifier}
}

// Get returns the current about document. A never-written document
// comes back empty rather than as an error.
func (s *AboutService) Get(ctx context.Context) (domain.About, error) {
	return s.repo.Get(ctx)
}

// Update replaces the about document and broadcasts it.
func (s *AboutService) Update(ctx context.Context, about domain.About) (domain.About, error) {
	about.ID = domain.AboutID
	about.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, about); err != nil {
		return domain.About{}, err
	}

	audit.Log(ctx, audit.ActionAboutUpdate, domain.RoomAbout, domain.AboutID, "about updated")

	// Re-read so the broadcast carries what storage actually holds.
	fresh, err := s.repo.Get(ctx)
	if err != nil {
		fresh = about
	}

	s.notifier.Updated(ctx, realtime.About, fresh, fresh)

	return fresh, nil
}
