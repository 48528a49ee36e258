package ride

import (
	"context"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/pkg/uuid"
)

type RideRepo interface {
	Create(ctx context.Context, ride *models.Ride) (*models.Ride, error)
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	ReserveSeat(ctx context.Context, rideID uuid.UUID, userID string) (bool, error)
	ReleaseSeat(ctx context.Context, rideID uuid.UUID, userID string) (bool, error)
	Complete(ctx context.Context, rideID uuid.UUID, driverID string) (bool, error)
	Delete(ctx context.Context, rideID uuid.UUID, driverID string) (bool, error)
	ReconcileSeats(ctx context.Context, rideID uuid.UUID) error
}

type EventPublisher interface {
	PublishRideEvent(ctx context.Context, msg models.RideEventMessage) error
}

// Notifier wakes live roster subscribers after a successful mutation.
type Notifier interface {
	Notify()
}
