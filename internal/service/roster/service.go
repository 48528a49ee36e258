package roster

import (
	"context"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/watch"
)

type RideRepo interface {
	ListAvailable(ctx context.Context) ([]models.Ride, error)
	ListByDriver(ctx context.Context, userID string) ([]models.Ride, error)
	ListByPassenger(ctx context.Context, userID string) ([]models.Ride, error)
}

// RosterService builds the ride list views. Every view is a projection of
// the same store: the feed of open rides, the user's offered and taken
// rides, and their merged history.
type RosterService struct {
	repo   RideRepo
	hub    *watch.Hub
	logger logger.Logger
}

func NewRosterService(repo RideRepo, hub *watch.Hub, logger logger.Logger) *RosterService {
	return &RosterService{
		repo:   repo,
		hub:    hub,
		logger: logger,
	}
}

// Available lists every ride still open for reservation, in the feed order
// the store defines.
func (s *RosterService) Available(ctx context.Context) ([]models.Ride, error) {
	ctx = wrap.WithAction(ctx, "list_available")

	rides, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return rides, nil
}

// Offered lists every ride the acting user drives, whatever its status.
func (s *RosterService) Offered(ctx context.Context) ([]models.Ride, error) {
	ctx = wrap.WithAction(ctx, "list_offered")

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}

	rides, err := s.repo.ListByDriver(ctx, session.UserID())
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return rides, nil
}

// Taken lists every ride where the acting user holds a seat, whatever its
// status.
func (s *RosterService) Taken(ctx context.Context) ([]models.Ride, error) {
	ctx = wrap.WithAction(ctx, "list_taken")

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}

	rides, err := s.repo.ListByPassenger(ctx, session.UserID())
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return rides, nil
}

// History lists every ride the acting user took part in, driven or ridden,
// active or completed, each ride exactly once even when the user somehow
// appears on both sides.
func (s *RosterService) History(ctx context.Context) ([]models.Ride, error) {
	ctx = wrap.WithAction(ctx, "list_history")

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}
	userID := session.UserID()

	driven, err := s.repo.ListByDriver(ctx, userID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	ridden, err := s.repo.ListByPassenger(ctx, userID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	seen := make(map[string]bool)
	history := []models.Ride{}
	for _, r := range append(driven, ridden...) {
		if seen[r.ID.String()] {
			continue
		}
		seen[r.ID.String()] = true
		history = append(history, r)
	}

	return history, nil
}

// WatchAvailable streams the open-ride feed: the current snapshot first,
// then a fresh full snapshot after every change. Deliveries are coalesced —
// a slow consumer gets the latest state, never a backlog of intermediate
// ones. The stream ends when ctx is cancelled.
func (s *RosterService) WatchAvailable(ctx context.Context) <-chan []models.Ride {
	return s.watchProjection(ctx, s.Available)
}

// WatchHistory streams the acting user's ride history the same way
// WatchAvailable streams the feed.
func (s *RosterService) WatchHistory(ctx context.Context) <-chan []models.Ride {
	return s.watchProjection(ctx, s.History)
}

func (s *RosterService) watchProjection(ctx context.Context, fetch func(context.Context) ([]models.Ride, error)) <-chan []models.Ride {
	out := make(chan []models.Ride, 1)
	sub := s.hub.Subscribe()

	push := func() bool {
		rides, err := fetch(ctx)
		if err != nil {
			s.logger.Error(ctx, "projection refresh failed", err)
			return true // keep the stream alive, next change retries
		}
		// Replace any undelivered snapshot: latest state wins.
		select {
		case <-out:
		default:
		}
		select {
		case out <- rides:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer sub.Cancel()
		defer close(out)

		if !push() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.C:
				if !ok {
					return
				}
				if !push() {
					return
				}
			}
		}
	}()

	return out
}
