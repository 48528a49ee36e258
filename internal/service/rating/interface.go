package rating

import (
	"context"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/pkg/uuid"
)

type RideRepo interface {
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	MarkRated(ctx context.Context, rideID uuid.UUID, raterID string) (bool, error)
}

type UserRepo interface {
	AddRating(ctx context.Context, email string, stars int) error
}

type EventPublisher interface {
	PublishRideEvent(ctx context.Context, msg models.RideEventMessage) error
}

type Notifier interface {
	Notify()
}
