package models

import (
	"time"

	"github.com/caronahq/carona-system/internal/domain/types"
)

type UserCreateRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Role     types.UserRole `json:"role"`
	Password string         `json:"password"`
}

// User is keyed by email — the mobile client used the email as the document
// id and every ride references passengers by it.
type User struct {
	Email        string         `json:"email"`
	Name         string         `json:"name"`
	Role         types.UserRole `json:"role"`
	passwordHash string

	// Reputation counters. TotalStars is the running sum of received stars,
	// RatingCount the number of ratings; both only ever grow.
	TotalStars  int `json:"total_stars"`
	RatingCount int `json:"rating_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func (u *User) GetPasswordHash() string {
	return u.passwordHash
}

func (u *User) SetPasswordHash(hash string) {
	u.passwordHash = hash
}

// Capabilities resolves the stored role into explicit permission flags.
func (u *User) Capabilities() types.Capabilities {
	return types.CapabilitiesOf(u.Role)
}

// AverageRating is the public reputation signal: totalStars / ratingCount.
func (u *User) AverageRating() float64 {
	if u.RatingCount == 0 {
		return 0
	}
	return float64(u.TotalStars) / float64(u.RatingCount)
}
