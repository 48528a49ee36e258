package ride

import (
	"context"
	"fmt"
	"time"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/metrics"
	"github.com/caronahq/carona-system/pkg/uuid"
)

const serviceName = "carona"

type RideService struct {
	repo     RideRepo
	producer EventPublisher
	notifier Notifier
	logger   logger.Logger
}

func NewRideService(repo RideRepo, producer EventPublisher, notifier Notifier, logger logger.Logger) *RideService {
	return &RideService{
		repo:     repo,
		producer: producer,
		notifier: notifier,
		logger:   logger,
	}
}

// Create registers a new offered ride. The acting user becomes the driver;
// the seat counter starts at full capacity.
func (s *RideService) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	ctx = wrap.WithAction(ctx, "create_ride")

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}
	if !session.User.Capabilities().CanDrive {
		return nil, wrap.Error(ctx, types.ErrCannotDrive)
	}

	ride.DriverID = session.User.Email
	ride.DriverName = session.User.Name
	ride.Status = types.RideActive
	ride.Seats = ride.Capacity
	ride.Passengers = []string{}
	ride.UsersWhoRated = []string{}

	created, err := s.repo.Create(ctx, ride)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("could not create ride in repo: %w", err))
	}

	metrics.RidesTotal.WithLabelValues(serviceName).Inc()
	s.publishEvent(ctx, types.EventRideCreated, created.ID, session.UserID(), created)
	s.notifier.Notify()

	return created, nil
}

func (s *RideService) Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	ctx = wrap.WithAction(ctx, "get_ride")
	ctx = wrap.WithRideID(ctx, rideID.String())

	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	return s.checked(ctx, ride), nil
}

// Reserve takes one seat on a ride for the acting user. The store applies
// the whole seat transition as a single guarded update, so under concurrent
// reservations of the last seat exactly one caller wins; a losing caller
// gets the precise policy rejection back.
func (s *RideService) Reserve(ctx context.Context, rideID uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "reserve_seat")
	ctx = wrap.WithRideID(ctx, rideID.String())

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return wrap.Error(ctx, types.ErrUserNotFound)
	}
	if !session.User.Capabilities().CanRide {
		metrics.RecordReservation(serviceName, "error")
		return wrap.Error(ctx, types.ErrCannotRide)
	}
	userID := session.UserID()

	ok, err := s.repo.ReserveSeat(ctx, rideID, userID)
	if err != nil {
		metrics.RecordReservation(serviceName, "error")
		return wrap.Error(ctx, err)
	}
	if ok {
		metrics.RecordReservation(serviceName, "reserved")
		s.publishEvent(ctx, types.EventSeatReserved, rideID, userID, nil)
		s.notifier.Notify()
		return nil
	}

	// The guarded update changed nothing; re-read to find out which
	// precondition failed.
	reason, retryable, err := s.classifyReserveRejection(ctx, rideID, userID)
	if err != nil {
		metrics.RecordReservation(serviceName, "error")
		return wrap.Error(ctx, err)
	}
	if retryable {
		// The counter disagreed with the roster. The roster is the source
		// of truth: rebuild the counter and try once more.
		ok, err = s.repo.ReserveSeat(ctx, rideID, userID)
		if err != nil {
			metrics.RecordReservation(serviceName, "error")
			return wrap.Error(ctx, err)
		}
		if ok {
			metrics.RecordReservation(serviceName, "reserved")
			s.publishEvent(ctx, types.EventSeatReserved, rideID, userID, nil)
			s.notifier.Notify()
			return nil
		}
		reason, _, err = s.classifyReserveRejection(ctx, rideID, userID)
		if err != nil {
			metrics.RecordReservation(serviceName, "error")
			return wrap.Error(ctx, err)
		}
	}

	metrics.RecordReservation(serviceName, reservationOutcome(reason))
	return wrap.Error(ctx, reason)
}

// classifyReserveRejection inspects the current snapshot and returns the
// policy error the guarded update tripped on, in precedence order. It
// reports retryable=true when the only explanation is a seat counter out of
// sync with the roster, after repairing the counter.
func (s *RideService) classifyReserveRejection(ctx context.Context, rideID uuid.UUID, userID string) (reason error, retryable bool, err error) {
	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return nil, false, err
	}

	switch {
	case ride.IsDriver(userID):
		return types.ErrSelfReservation, false, nil
	case ride.HasPassenger(userID):
		return types.ErrAlreadyReserved, false, nil
	case ride.Status != types.RideActive:
		return types.ErrRideNotActive, false, nil
	case ride.Seats <= 0:
		if !ride.SeatsConsistent() && ride.ReconciledSeats() > 0 {
			s.reportAnomaly(ctx, ride)
			if err := s.repo.ReconcileSeats(ctx, rideID); err != nil {
				return nil, false, err
			}
			return types.ErrRideFull, true, nil
		}
		return types.ErrRideFull, false, nil
	default:
		// Every guard passes on re-read; the first attempt lost a race
		// that has since resolved. Treat as retryable.
		return types.ErrRideFull, true, nil
	}
}

// Cancel releases the acting user's seat. Cancelling a seat that is not
// held is a no-op, so retries after timeouts are harmless.
func (s *RideService) Cancel(ctx context.Context, rideID uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "cancel_reservation")
	ctx = wrap.WithRideID(ctx, rideID.String())

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return wrap.Error(ctx, types.ErrUserNotFound)
	}
	userID := session.UserID()

	ok, err := s.repo.ReleaseSeat(ctx, rideID, userID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if ok {
		s.publishEvent(ctx, types.EventSeatReleased, rideID, userID, nil)
		s.notifier.Notify()
		return nil
	}

	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if !ride.HasPassenger(userID) {
		return nil // already free of the ride
	}
	if ride.Status != types.RideActive {
		return wrap.Error(ctx, types.ErrRideNotActive)
	}

	return wrap.Error(ctx, types.ErrDatabaseFailed)
}

// Complete moves the ride to its terminal state. Driver only; one-way.
func (s *RideService) Complete(ctx context.Context, rideID uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "complete_ride")
	ctx = wrap.WithRideID(ctx, rideID.String())

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return wrap.Error(ctx, types.ErrUserNotFound)
	}
	userID := session.UserID()

	ok, err := s.repo.Complete(ctx, rideID, userID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if ok {
		s.publishEvent(ctx, types.EventRideCompleted, rideID, userID, nil)
		s.notifier.Notify()
		return nil
	}

	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if !ride.IsDriver(userID) {
		return wrap.Error(ctx, types.ErrNotRideDriver)
	}
	if ride.IsCompleted() {
		return nil // already terminal, keep it idempotent
	}

	return wrap.Error(ctx, types.ErrDatabaseFailed)
}

// Delete removes the ride entirely. The final snapshot goes out as an audit
// event before the row disappears.
func (s *RideService) Delete(ctx context.Context, rideID uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "delete_ride")
	ctx = wrap.WithRideID(ctx, rideID.String())

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return wrap.Error(ctx, types.ErrUserNotFound)
	}
	userID := session.UserID()

	ride, err := s.repo.Get(ctx, rideID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if !ride.IsDriver(userID) {
		return wrap.Error(ctx, types.ErrNotRideDriver)
	}

	ok, err := s.repo.Delete(ctx, rideID, userID)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if !ok {
		// Lost a race with another delete of the same ride.
		return wrap.Error(ctx, types.ErrRideNotFound)
	}

	s.publishEvent(ctx, types.EventRideDeleted, rideID, userID, ride)
	s.notifier.Notify()

	return nil
}

// checked flags and repairs a snapshot whose counter disagrees with the
// roster. The returned ride carries the reconciled counter either way.
func (s *RideService) checked(ctx context.Context, ride *models.Ride) *models.Ride {
	if ride.SeatsConsistent() {
		return ride
	}

	s.reportAnomaly(ctx, ride)
	if err := s.repo.ReconcileSeats(ctx, ride.ID); err != nil {
		s.logger.Error(ctx, "seat reconciliation failed", err)
	}
	ride.Seats = ride.ReconciledSeats()

	return ride
}

func (s *RideService) reportAnomaly(ctx context.Context, ride *models.Ride) {
	metrics.SeatAnomaliesTotal.WithLabelValues(serviceName).Inc()
	s.logger.Warn(wrap.WithAction(ctx, types.ActionSeatReconciliation),
		"seat counter out of sync with passenger roster",
		"ride_id", ride.ID.String(),
		"seats", ride.Seats,
		"capacity", ride.Capacity,
		"passengers", len(ride.Passengers),
	)
}

// publishEvent is best effort: a broker outage must not fail the ride
// operation, the store has already committed.
func (s *RideService) publishEvent(ctx context.Context, event types.RideEvent, rideID uuid.UUID, actorID string, snapshot *models.Ride) {
	msg := models.RideEventMessage{
		Event:     event,
		RideID:    rideID,
		ActorID:   actorID,
		Ride:      snapshot,
		Timestamp: time.Now(),
	}

	if err := s.producer.PublishRideEvent(ctx, msg); err != nil {
		s.logger.Error(ctx, "failed to publish ride event", err, "event", event.String())
	}
}

func reservationOutcome(reason error) string {
	switch reason {
	case types.ErrSelfReservation:
		return "self"
	case types.ErrAlreadyReserved:
		return "duplicate"
	case types.ErrRideFull:
		return "full"
	case types.ErrRideNotActive:
		return "not_active"
	default:
		return "error"
	}
}
