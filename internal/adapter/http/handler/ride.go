package handler

import (
	"context"
	"net/http"

	"github.com/caronahq/carona-system/internal/adapter/http/handler/dto"
	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/uuid"
	"github.com/caronahq/carona-system/pkg/validator"
)

type RideService interface {
	Create(ctx context.Context, ride *models.Ride) (*models.Ride, error)
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
	Reserve(ctx context.Context, rideID uuid.UUID) error
	Cancel(ctx context.Context, rideID uuid.UUID) error
	Complete(ctx context.Context, rideID uuid.UUID) error
	Delete(ctx context.Context, rideID uuid.UUID) error
}

type Ride struct {
	rides RideService
	l     logger.Logger
}

func NewRide(rides RideService, l logger.Logger) *Ride {
	return &Ride{
		rides: rides,
		l:     l,
	}
}

// rideIDFromPath parses the {ride_id} path segment.
func rideIDFromPath(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("ride_id"))
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// Create godoc
// @Summary      Offer a ride
// @Description  Publishes a new ride with the acting user as driver
// @Tags         Rides
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateRideRequest true "Ride details"
// @Success      201  {object}  models.Ride
// @Failure      422  {object}  map[string]any
// @Router       /rides [post]
func (h *Ride) Create(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_ride")

	req := &dto.CreateRideRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	dto.ValidateCreateRide(v, req)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	ride, err := h.rides.Create(ctx, req.ToModel())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create ride", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"ride": ride}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Get godoc
// @Summary      Ride details
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id path string true "Ride id"
// @Success      200  {object}  models.Ride
// @Failure      404  {object}  map[string]any
// @Router       /rides/{ride_id} [get]
func (h *Ride) Get(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_ride")

	id, ok := rideIDFromPath(r)
	if !ok {
		badRequestResponse(w, "invalid ride id")
		return
	}

	ride, err := h.rides.Get(ctx, id)
	if err != nil {
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"ride": ride}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Reserve godoc
// @Summary      Reserve a seat
// @Description  Takes one seat on the ride for the acting user
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id path string true "Ride id"
// @Success      200  {object}  map[string]string
// @Failure      409  {object}  map[string]any
// @Router       /rides/{ride_id}/reserve [post]
func (h *Ride) Reserve(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "reserve_seat")

	id, ok := rideIDFromPath(r)
	if !ok {
		badRequestResponse(w, "invalid ride id")
		return
	}

	if err := h.rides.Reserve(ctx, id); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to reserve seat", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": "reserved"}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Cancel godoc
// @Summary      Cancel a reservation
// @Description  Releases the acting user's seat; repeat calls are harmless
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id path string true "Ride id"
// @Success      200  {object}  map[string]string
// @Router       /rides/{ride_id}/cancel [post]
func (h *Ride) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "cancel_reservation")

	id, ok := rideIDFromPath(r)
	if !ok {
		badRequestResponse(w, "invalid ride id")
		return
	}

	if err := h.rides.Cancel(ctx, id); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to cancel reservation", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": "cancelled"}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Complete godoc
// @Summary      Complete a ride
// @Description  Driver-only, moves the ride to its terminal state
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id path string true "Ride id"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]any
// @Router       /rides/{ride_id}/complete [post]
func (h *Ride) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "complete_ride")

	id, ok := rideIDFromPath(r)
	if !ok {
		badRequestResponse(w, "invalid ride id")
		return
	}

	if err := h.rides.Complete(ctx, id); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to complete ride", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": "completed"}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// Delete godoc
// @Summary      Delete a ride
// @Description  Driver-only, removes the ride entirely
// @Tags         Rides
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id path string true "Ride id"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]any
// @Router       /rides/{ride_id} [delete]
func (h *Ride) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "delete_ride")

	id, ok := rideIDFromPath(r)
	if !ok {
		badRequestResponse(w, "invalid ride id")
		return
	}

	if err := h.rides.Delete(ctx, id); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to delete ride", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"status": "deleted"}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
