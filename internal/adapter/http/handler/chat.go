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

type ChatService interface {
	Send(ctx context.Context, rideID uuid.UUID, text string) (*models.Message, error)
	List(ctx context.Context, rideID uuid.UUID) ([]models.Message, error)
}

type Chat struct {
	chat ChatService
	l    logger.Logger
}

func NewChat(chat ChatService, l logger.Logger) *Chat {
	return &Chat{
		chat: chat,
		l:    l,
	}
}

// Send godoc
// @Summary      Send a ride message
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id path string true "Ride id"
// @Param        request body dto.SendMessageRequest true "Message"
// @Success      201  {object}  models.Message
// @Failure      403  {object}  map[string]any
// @Router       /rides/{ride_id}/messages [post]
func (h *Chat) Send(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "send_message")

	id, ok := rideIDFromPath(r)
	if !ok {
		badRequestResponse(w, "invalid ride id")
		return
	}

	req := &dto.SendMessageRequest{}
	if err := readJSON(w, r, req); err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	dto.ValidateSendMessage(v, req)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	msg, err := h.chat.Send(ctx, id, req.Text)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to send message", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"message": msg}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}

// List godoc
// @Summary      Ride message log
// @Description  Newest first, participants only
// @Tags         Chat
// @Produce      json
// @Security     BearerAuth
// @Param        ride_id path string true "Ride id"
// @Success      200  {array}  models.Message
// @Failure      403  {object}  map[string]any
// @Router       /rides/{ride_id}/messages [get]
func (h *Chat) List(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_messages")

	id, ok := rideIDFromPath(r)
	if !ok {
		badRequestResponse(w, "invalid ride id")
		return
	}

	msgs, err := h.chat.List(ctx, id)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list messages", err)
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"messages": msgs}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write JSON response", err)
		internalErrorResponse(w, "failed to write JSON response")
	}
}
