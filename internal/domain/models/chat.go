package models

import (
	"time"

	"github.com/caronahq/carona-system/pkg/uuid"
)

// Message is one entry in a ride's append-only chat log.
type Message struct {
	ID         uuid.UUID `json:"id"`
	RideID     uuid.UUID `json:"ride_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}
