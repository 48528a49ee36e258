package handler

import (
	"context"
	"net/http"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
)

type RosterService interface {
	Available(ctx context.Context) ([]models.Ride, error)
	Offered(ctx context.Context) ([]models.Ride, error)
	Taken(ctx context.Context) ([]models.Ride, error)
	History(ctx context.Context) ([]models.Ride, error)
	WatchAvailable(ctx context.Context) <-chan []models.Ride
	WatchHistory(ctx context.Context) <-chan []models.Ride
}

type Roster struct {
	roster RosterService
	l      logger.Logger
}

func NewRoster(roster RosterService, l logger.Logger) *Roster {
	return &Roster{
		roster: roster,
		l:      l,
	}
}

// Available godoc
// @Summary      Open ride feed
// @Tags         Rosters
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Ride
// @Router       /rides [get]
func (h *Roster) Available(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list_available", h.roster.Available)
}

// Offered godoc
// @Summary      Rides the user is driving
// @Tags         Rosters
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Ride
// @Router       /rides/offered [get]
func (h *Roster) Offered(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list_offered", h.roster.Offered)
}

// Taken godoc
// @Summary      Rides the user holds a seat on
// @Tags         Rosters
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Ride
// @Router       /rides/taken [get]
func (h *Roster) Taken(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list_taken", h.roster.Taken)
}

// History godoc
// @Summary      Every ride the user took part in
// @Tags         Rosters
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Ride
// @Router       /rides/history [get]
func (h *Roster) History(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list_history", h.roster.History)
}

func (h *Roster) list(w http.ResponseWriter, r *http.Request, action string, fetch func(context.Context) ([]models.Ride, error)) {
	ctx := wrap.WithAction(r.Context(), action)

	rides, err := fetch(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to build ride projection", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"rides": rides}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
