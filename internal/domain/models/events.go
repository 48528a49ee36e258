package models

import (
	"time"

	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/uuid"
)

/* ======================= rabbitmq ======================= */

// RideEventMessage is published on every ride lifecycle transition. For
// deletions it carries the final snapshot — the only audit trail a
// hard-deleted ride leaves behind.
type RideEventMessage struct {
	Event     types.RideEvent `json:"event"`
	RideID    uuid.UUID       `json:"ride_id"`
	ActorID   string          `json:"actor_id"`
	Ride      *Ride           `json:"ride,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

/* ======================= websocket ======================= */

// RideFeedUpdate is one live-projection delivery: the full latest snapshot
// set, never a delta.
type RideFeedUpdate struct {
	Type  string `json:"type"` // "snapshot"
	Rides []Ride `json:"rides"`
}
