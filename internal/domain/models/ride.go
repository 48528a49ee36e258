package models

import (
	"slices"
	"time"

	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/uuid"
)

// Ride is one offered trip. Capacity is fixed at creation; Seats counts the
// remaining free ones. Passengers and UsersWhoRated are sets (no duplicates)
// and are the source of truth — Seats is derived and re-derivable from them.
type Ride struct {
	ID         uuid.UUID        `json:"id"`
	From       string           `json:"from"`
	To         string           `json:"to"`
	Date       time.Time        `json:"date"`
	Capacity   int              `json:"capacity"`
	Seats      int              `json:"seats"`
	Price      float64          `json:"price"`
	DriverID   string           `json:"driver_id"`
	DriverName string           `json:"driver_name"`
	Passengers []string         `json:"passengers"`
	Status     types.RideStatus `json:"status"`

	// UsersWhoRated holds the identities that already submitted their
	// one-shot rating for this ride.
	UsersWhoRated []string `json:"users_who_rated"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (r *Ride) IsDriver(userID string) bool {
	return r.DriverID == userID
}

func (r *Ride) HasPassenger(userID string) bool {
	return slices.Contains(r.Passengers, userID)
}

func (r *Ride) HasRated(userID string) bool {
	return slices.Contains(r.UsersWhoRated, userID)
}

// IsParticipant reports whether userID is the driver or holds a seat.
func (r *Ride) IsParticipant(userID string) bool {
	return r.IsDriver(userID) || r.HasPassenger(userID)
}

func (r *Ride) IsCompleted() bool {
	return r.Status == types.RideCompleted
}

func (r *Ride) IsFull() bool {
	return r.Seats <= 0
}

// SeatsConsistent checks the conservation invariant: remaining seats plus
// occupied seats must equal the original capacity, and seats never go
// negative. A false result is a data-integrity anomaly.
func (r *Ride) SeatsConsistent() bool {
	return r.Seats >= 0 && r.Seats+len(r.Passengers) == r.Capacity
}

// ReconciledSeats re-derives the seat counter from the passenger set.
// Used when a snapshot fails SeatsConsistent: the roster wins, the counter
// is corrected.
func (r *Ride) ReconciledSeats() int {
	s := r.Capacity - len(r.Passengers)
	if s < 0 {
		return 0
	}
	return s
}
