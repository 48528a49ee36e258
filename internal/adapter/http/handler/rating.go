package handler

import (
	"context"
	"net/http"

	"github.com/caronahq/carona-system/internal/adapter/http/handler/dto"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/uuid"
	"github.com/caronahq/carona-system/pkg/validator"
)

type RatingService interface {
	CanRate(ctx context.Context, rideID uuid.UUID) error
	SubmitRating(ctx context.Context, rideID uuid.UUID, ratedID string, stars int) error
}

type Rating struct {
	ratings RatingService
	l       logger.Logger
}

func NewRating(ratings RatingService, l logger.Logger) *Rating {
	return &Rating{
		ratings: ratings,
		l:       l,
	}
}

// CanRate godoc
// @Summary      Rating eligibility
// @Description  Tells whether the acting user still owes a rating on the ride
// @Tags         Ratings
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id path string true "Ride id"
// @Success      200  {object}  map[string]any
// @Router       /rides/{ride_id}/rating [get]
func (h *Rating) CanRate(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "can_rate")

	id, ok := rideIDFromPath(r)
	if !ok {
		badRequestResponse(w, "invalid ride id")
		return
	}

	err := h.ratings.CanRate(ctx, id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, envelope{"can_rate": true}, nil)
	case types.IsPolicyRejection(err):
		// Not an HTTP error: the answer is simply "no", with the reason.
		writeJSON(w, http.StatusOK, envelope{"can_rate": false, "reason": err.Error()}, nil)
	default:
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to check rating eligibility", err)
		errorResponse(w, GetCode(err), err.Error())
	}
}

// Submit godoc
// @Summary      Submit a rating
// @Description  Records the acting user's one-shot rating for a participant of the completed ride
// @Tags         Ratings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id path string true "Ride id"
// @Param        request body dto.SubmitRatingRequest true "Rating"
// @Success      201  {object}  map[string]string
// @Failure      409  {object}  map[string]any
// @Router       /rides/{ride_id}/rating [post]
func (h *Rating) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "submit_rating")

	id, ok := rideIDFromPath(r)
	if !ok {
		badRequestResponse(w, "invalid ride id")
		return
	}

	req := &dto.SubmitRatingRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	dto.ValidateSubmitRating(v, req)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	if err := h.ratings.SubmitRating(ctx, id, req.RatedID, req.Stars); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to submit rating", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"status": "rated"}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
