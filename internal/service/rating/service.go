package rating

import (
	"context"
	"fmt"
	"time"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/metrics"
	"github.com/caronahq/carona-system/pkg/trm"
	"github.com/caronahq/carona-system/pkg/uuid"
)

const serviceName = "carona"

// RatingService implements the one-shot mutual rating between a driver and
// a passenger of a completed ride. The flag on the ride and the rated user's
// reputation counters move together inside one transaction; the flag's
// set-membership guard makes a retry of a half-failed submission safe.
type RatingService struct {
	rides    RideRepo
	users    UserRepo
	producer EventPublisher
	notifier Notifier
	logger   logger.Logger
	trm      trm.TxManager
}

func NewRatingService(rides RideRepo, users UserRepo, producer EventPublisher, notifier Notifier, logger logger.Logger, trm trm.TxManager) *RatingService {
	return &RatingService{
		rides:    rides,
		users:    users,
		producer: producer,
		notifier: notifier,
		logger:   logger,
		trm:      trm,
	}
}

// CanRate reports whether the acting user still owes a rating on the ride:
// the ride is completed, the user took part, and they have not rated yet.
// A nil error means yes; otherwise the error names the failed condition.
func (s *RatingService) CanRate(ctx context.Context, rideID uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "can_rate")
	ctx = wrap.WithRideID(ctx, rideID.String())

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return wrap.Error(ctx, types.ErrUserNotFound)
	}

	ride, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return wrap.Error(ctx, err)
	}

	if err := rateGate(ride, session.UserID()); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}

// SubmitRating records the acting user's stars for ratedID on a completed
// ride. The rated user must be on the opposite side of the ride: drivers
// rate one of their passengers, passengers rate the driver.
func (s *RatingService) SubmitRating(ctx context.Context, rideID uuid.UUID, ratedID string, stars int) error {
	ctx = wrap.WithAction(ctx, "submit_rating")
	ctx = wrap.WithRideID(ctx, rideID.String())

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return wrap.Error(ctx, types.ErrUserNotFound)
	}
	raterID := session.UserID()

	if stars < 1 || stars > 5 {
		metrics.RatingsTotal.WithLabelValues(serviceName, "rejected").Inc()
		return wrap.Error(ctx, types.ErrInvalidStars)
	}

	err := s.trm.Do(ctx, func(ctx context.Context) error {
		ride, err := s.rides.Get(ctx, rideID)
		if err != nil {
			return err
		}

		if err := rateGate(ride, raterID); err != nil {
			return err
		}
		if err := validateRatedUser(ride, raterID, ratedID); err != nil {
			return err
		}

		// The guarded flag update is the serialization point: of two
		// concurrent submissions by the same rater exactly one flips it.
		ok, err := s.rides.MarkRated(ctx, rideID, raterID)
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrAlreadyRated
		}

		if err := s.users.AddRating(ctx, ratedID, stars); err != nil {
			return fmt.Errorf("could not update reputation counters: %w", err)
		}

		return nil
	})
	if err != nil {
		if types.IsPolicyRejection(err) {
			metrics.RatingsTotal.WithLabelValues(serviceName, "rejected").Inc()
		} else {
			metrics.RatingsTotal.WithLabelValues(serviceName, "error").Inc()
		}
		return wrap.Error(ctx, err)
	}

	metrics.RatingsTotal.WithLabelValues(serviceName, "success").Inc()
	s.publishRated(ctx, rideID, raterID)
	s.notifier.Notify()

	return nil
}

// rateGate is the shared precondition check for CanRate and SubmitRating.
func rateGate(ride *models.Ride, raterID string) error {
	if !ride.IsCompleted() {
		return types.ErrRideNotCompleted
	}
	if !ride.IsParticipant(raterID) {
		return types.ErrNotParticipant
	}
	if ride.HasRated(raterID) {
		return types.ErrAlreadyRated
	}
	return nil
}

// validateRatedUser makes sure ratedID is a legal target: a participant of
// this ride, not the rater, and on the opposite side of the driver/passenger
// split.
func validateRatedUser(ride *models.Ride, raterID, ratedID string) error {
	if ratedID == "" || ratedID == raterID {
		return types.ErrInvalidRatedUser
	}
	if ride.IsDriver(raterID) {
		if !ride.HasPassenger(ratedID) {
			return types.ErrInvalidRatedUser
		}
		return nil
	}
	if !ride.IsDriver(ratedID) {
		return types.ErrInvalidRatedUser
	}
	return nil
}

func (s *RatingService) publishRated(ctx context.Context, rideID uuid.UUID, actorID string) {
	msg := models.RideEventMessage{
		Event:     types.EventRideRated,
		RideID:    rideID,
		ActorID:   actorID,
		Timestamp: time.Now(),
	}
	if err := s.producer.PublishRideEvent(ctx, msg); err != nil {
		s.logger.Error(ctx, "failed to publish rating event", err)
	}
}
