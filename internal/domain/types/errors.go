package types

import "errors"

// Policy rejections: a precondition failed, the actor can correct and retry.
// Each case is a distinct sentinel so callers can render a specific message;
// they are never retried automatically.
var (
	ErrSelfReservation  = errors.New("driver cannot reserve a seat on their own ride")
	ErrAlreadyReserved  = errors.New("user already holds a seat on this ride")
	ErrRideFull         = errors.New("ride has no seats left")
	ErrRideNotActive    = errors.New("ride is no longer active")
	ErrNotRideDriver    = errors.New("only the ride's driver may perform this action")
	ErrRideNotCompleted = errors.New("ride is not completed yet")
	ErrNotParticipant   = errors.New("user did not take part in this ride")
	ErrAlreadyRated     = errors.New("user already rated this ride")
	ErrInvalidStars     = errors.New("stars must be between 1 and 5")
	ErrInvalidRatedUser = errors.New("rated user is not a valid target for this rater")
	ErrCannotDrive      = errors.New("user profile does not allow offering rides")
	ErrCannotRide       = errors.New("user profile does not allow reserving seats")
	ErrEmptyMessage     = errors.New("message text is empty")

	ErrRideNotFound   = errors.New("ride not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrReportNotFound = errors.New("report not found")
	ErrNotFound       = errors.New("requested item not found")
)

// Transient store failures: safe to retry after re-validating preconditions
// against fresh state. Never retried unboundedly, never swallowed.
var (
	ErrDatabaseFailed       = errors.New("database operation failed")
	ErrFailedToPublishEvent = errors.New("failed to publish ride event")
	ErrSeatCounterOutOfSync = errors.New("seat counter disagrees with passenger roster")
)

// IsPolicyRejection reports whether err is a user-correctable precondition
// failure rather than an infrastructure fault.
func IsPolicyRejection(err error) bool {
	for _, target := range []error{
		ErrSelfReservation, ErrAlreadyReserved, ErrRideFull, ErrRideNotActive,
		ErrNotRideDriver, ErrRideNotCompleted, ErrNotParticipant, ErrAlreadyRated,
		ErrInvalidStars, ErrInvalidRatedUser, ErrCannotDrive, ErrCannotRide,
		ErrEmptyMessage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
