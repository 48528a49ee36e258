package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/postgres"
	"github.com/caronahq/carona-system/pkg/uuid"
)

// RideRepo is the Ride Store. Every mutation on seats, passengers and
// users_who_rated is a single conditional UPDATE so the invariants are
// enforced at the store's serialization boundary — a stale client snapshot
// can never overwrite a concurrent write. Whole-record writes of those
// fields are deliberately not offered.
type RideRepo struct {
	db *pgxpool.Pool
}

func NewRideRepo(db *pgxpool.Pool) *RideRepo {
	return &RideRepo{db: db}
}

const rideColumns = `
	id, from_location, to_location, ride_date, capacity, seats, price,
	driver_id, driver_name, passengers, status, users_who_rated,
	created_at, completed_at`

func scanRide(row pgx.Row) (*models.Ride, error) {
	var r models.Ride
	err := row.Scan(
		&r.ID, &r.From, &r.To, &r.Date, &r.Capacity, &r.Seats, &r.Price,
		&r.DriverID, &r.DriverName, &r.Passengers, &r.Status, &r.UsersWhoRated,
		&r.CreatedAt, &r.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if r.Passengers == nil {
		r.Passengers = []string{}
	}
	if r.UsersWhoRated == nil {
		r.UsersWhoRated = []string{}
	}
	return &r, nil
}

func (r *RideRepo) Create(ctx context.Context, ride *models.Ride) (*models.Ride, error) {
	q := TxorDB(ctx, r.db)

	query := `
		INSERT INTO rides (from_location, to_location, ride_date, capacity, seats, price,
		                   driver_id, driver_name, passengers, status, users_who_rated)
		VALUES ($1, $2, $3, $4, $4, $5, $6, $7, '{}', $8, '{}')
		RETURNING id, created_at;`

	err := q.QueryRow(ctx, query,
		ride.From, ride.To, ride.Date, ride.Capacity, ride.Price,
		ride.DriverID, ride.DriverName, types.RideActive,
	).Scan(&ride.ID, &ride.CreatedAt)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return nil, types.ErrUserNotFound
		}
		return nil, fmt.Errorf("ride repo: Create: %w", err)
	}

	ride.Seats = ride.Capacity
	ride.Status = types.RideActive
	ride.Passengers = []string{}
	ride.UsersWhoRated = []string{}

	return ride, nil
}

func (r *RideRepo) Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error) {
	q := TxorDB(ctx, r.db)

	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1;`

	ride, err := scanRide(q.QueryRow(ctx, query, rideID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		return nil, fmt.Errorf("ride repo: Get: %w", err)
	}

	return ride, nil
}

// ReserveSeat applies the reservation as one atomic step: the decrement and
// the set-add land together, and only if the ride is still active, has a
// seat, the actor is not the driver and not already seated. A false return
// means some precondition no longer holds — the caller re-reads the ride
// and classifies the rejection from fresh state.
func (r *RideRepo) ReserveSeat(ctx context.Context, rideID uuid.UUID, userID string) (bool, error) {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE rides
		SET seats = seats - 1,
		    passengers = array_append(passengers, $2)
		WHERE id = $1
		  AND status = 'active'
		  AND seats > 0
		  AND driver_id <> $2
		  AND NOT ($2 = ANY(passengers));`

	cmdTag, err := q.Exec(ctx, query, rideID, userID)
	if err != nil {
		// seats >= 0 is also a table CHECK; hitting it still means "full".
		if postgres.IsCheckViolation(err) {
			return false, nil
		}
		return false, wrap.Error(ctx, fmt.Errorf("ride repo: ReserveSeat: %w", err))
	}

	return cmdTag.RowsAffected() == 1, nil
}

// ReleaseSeat is the exact inverse of ReserveSeat and deliberately
// idempotent: when the user holds no seat the guard fails and nothing
// changes.
func (r *RideRepo) ReleaseSeat(ctx context.Context, rideID uuid.UUID, userID string) (bool, error) {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE rides
		SET seats = seats + 1,
		    passengers = array_remove(passengers, $2)
		WHERE id = $1
		  AND status = 'active'
		  AND $2 = ANY(passengers);`

	cmdTag, err := q.Exec(ctx, query, rideID, userID)
	if err != nil {
		return false, wrap.Error(ctx, fmt.Errorf("ride repo: ReleaseSeat: %w", err))
	}

	return cmdTag.RowsAffected() == 1, nil
}

// Complete moves the ride to its terminal state. The status guard makes the
// transition one-way: re-running it on a completed ride affects no rows.
func (r *RideRepo) Complete(ctx context.Context, rideID uuid.UUID, driverID string) (bool, error) {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE rides
		SET status = 'completed', completed_at = now()
		WHERE id = $1
		  AND driver_id = $2
		  AND status = 'active';`

	cmdTag, err := q.Exec(ctx, query, rideID, driverID)
	if err != nil {
		return false, wrap.Error(ctx, fmt.Errorf("ride repo: Complete: %w", err))
	}

	return cmdTag.RowsAffected() == 1, nil
}

// Delete removes the ride entirely, any status. Driver-only by guard.
func (r *RideRepo) Delete(ctx context.Context, rideID uuid.UUID, driverID string) (bool, error) {
	q := TxorDB(ctx, r.db)

	query := `DELETE FROM rides WHERE id = $1 AND driver_id = $2;`

	cmdTag, err := q.Exec(ctx, query, rideID, driverID)
	if err != nil {
		return false, wrap.Error(ctx, fmt.Errorf("ride repo: Delete: %w", err))
	}

	return cmdTag.RowsAffected() == 1, nil
}

// MarkRated records the one-shot rating flag. The set-membership guard is
// what makes rating retries duplicate-safe: a second attempt for the same
// (ride, rater) pair affects no rows.
func (r *RideRepo) MarkRated(ctx context.Context, rideID uuid.UUID, raterID string) (bool, error) {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE rides
		SET users_who_rated = array_append(users_who_rated, $2)
		WHERE id = $1
		  AND status = 'completed'
		  AND (driver_id = $2 OR $2 = ANY(passengers))
		  AND NOT ($2 = ANY(users_who_rated));`

	cmdTag, err := q.Exec(ctx, query, rideID, raterID)
	if err != nil {
		return false, wrap.Error(ctx, fmt.Errorf("ride repo: MarkRated: %w", err))
	}

	return cmdTag.RowsAffected() == 1, nil
}

// ReconcileSeats re-derives the seat counter from the passenger roster.
// The roster is the source of truth; this runs when a snapshot fails the
// conservation check.
func (r *RideRepo) ReconcileSeats(ctx context.Context, rideID uuid.UUID) error {
	q := TxorDB(ctx, r.db)

	query := `
		UPDATE rides
		SET seats = GREATEST(capacity - cardinality(passengers), 0)
		WHERE id = $1;`

	if _, err := q.Exec(ctx, query, rideID); err != nil {
		return wrap.Error(wrap.WithAction(ctx, types.ActionSeatReconciliation),
			fmt.Errorf("ride repo: ReconcileSeats: %w", err))
	}

	return nil
}

// ListAvailable returns every ride that has not been completed, in creation
// order (the store-defined order the client feed shows).
func (r *RideRepo) ListAvailable(ctx context.Context) ([]models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE status <> 'completed' ORDER BY created_at;`
	return r.list(ctx, query)
}

// ListByDriver returns the rides the user offered, newest first.
func (r *RideRepo) ListByDriver(ctx context.Context, userID string) ([]models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 ORDER BY created_at DESC;`
	return r.list(ctx, query, userID)
}

// ListByPassenger returns the rides the user holds (or held) a seat on.
func (r *RideRepo) ListByPassenger(ctx context.Context, userID string) ([]models.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE $1 = ANY(passengers) ORDER BY created_at DESC;`
	return r.list(ctx, query, userID)
}

func (r *RideRepo) list(ctx context.Context, query string, args ...any) ([]models.Ride, error) {
	q := TxorDB(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ride repo: list: %w", err)
	}
	defer rows.Close()

	rides := []models.Ride{}
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("ride repo: list scan: %w", err)
		}
		rides = append(rides, *ride)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ride repo: list rows: %w", err)
	}

	return rides, nil
}
