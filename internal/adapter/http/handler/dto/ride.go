package dto

import (
	"time"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/pkg/validator"
)

type CreateRideRequest struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Date     time.Time `json:"date"`
	Capacity int       `json:"capacity"`
	Price    float64   `json:"price"`
}

func (r *CreateRideRequest) ToModel() *models.Ride {
	return &models.Ride{
		From:     r.From,
		To:       r.To,
		Date:     r.Date,
		Capacity: r.Capacity,
		Price:    r.Price,
	}
}

func ValidateCreateRide(v *validator.Validator, req *CreateRideRequest) {
	v.Check(req.From != "", "from", "must be provided")
	v.Check(len(req.From) <= 500, "from", "must not be more than 500 bytes long")

	v.Check(req.To != "", "to", "must be provided")
	v.Check(len(req.To) <= 500, "to", "must not be more than 500 bytes long")

	v.Check(!req.Date.IsZero(), "date", "must be provided")

	v.Check(req.Capacity >= 1, "capacity", "must be at least 1")
	v.Check(req.Capacity <= 8, "capacity", "must not be more than 8")

	v.Check(req.Price >= 0, "price", "must not be negative")
}

type SubmitRatingRequest struct {
	RatedID string `json:"rated_id"`
	Stars   int    `json:"stars"`
}

func ValidateSubmitRating(v *validator.Validator, req *SubmitRatingRequest) {
	v.Check(req.RatedID != "", "rated_id", "must be provided")
	v.Check(req.Stars >= 1 && req.Stars <= 5, "stars", "must be between 1 and 5")
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

func ValidateSendMessage(v *validator.Validator, req *SendMessageRequest) {
	v.Check(req.Text != "", "text", "must be provided")
	v.Check(len(req.Text) <= 2000, "text", "must not be more than 2000 bytes long")
}

type SubmitReportRequest struct {
	Text string `json:"text"`
}

func ValidateSubmitReport(v *validator.Validator, req *SubmitReportRequest) {
	v.Check(req.Text != "", "text", "must be provided")
	v.Check(len(req.Text) <= 5000, "text", "must not be more than 5000 bytes long")
}
