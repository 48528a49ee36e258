package chat

import (
	"context"
	"strings"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/uuid"
)

type MessageRepo interface {
	Append(ctx context.Context, msg *models.Message) error
	ListByRide(ctx context.Context, rideID uuid.UUID) ([]models.Message, error)
}

type RideRepo interface {
	Get(ctx context.Context, rideID uuid.UUID) (*models.Ride, error)
}

// ChatService is the per-ride message board. Only the driver and the seated
// passengers can read or write it.
type ChatService struct {
	messages MessageRepo
	rides    RideRepo
	logger   logger.Logger
}

func NewChatService(messages MessageRepo, rides RideRepo, logger logger.Logger) *ChatService {
	return &ChatService{
		messages: messages,
		rides:    rides,
		logger:   logger,
	}
}

func (s *ChatService) Send(ctx context.Context, rideID uuid.UUID, text string) (*models.Message, error) {
	ctx = wrap.WithAction(ctx, "send_message")
	ctx = wrap.WithRideID(ctx, rideID.String())

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, wrap.Error(ctx, types.ErrEmptyMessage)
	}

	ride, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !ride.IsParticipant(session.UserID()) {
		return nil, wrap.Error(ctx, types.ErrNotParticipant)
	}

	msg := &models.Message{
		RideID:     rideID,
		SenderID:   session.UserID(),
		SenderName: session.User.Name,
		Text:       text,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	return msg, nil
}

func (s *ChatService) List(ctx context.Context, rideID uuid.UUID) ([]models.Message, error) {
	ctx = wrap.WithAction(ctx, "list_messages")
	ctx = wrap.WithRideID(ctx, rideID.String())

	session := models.SessionFromContext(ctx)
	if session.IsAnonymous() {
		return nil, wrap.Error(ctx, types.ErrUserNotFound)
	}

	ride, err := s.rides.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if !ride.IsParticipant(session.UserID()) {
		return nil, wrap.Error(ctx, types.ErrNotParticipant)
	}

	return s.messages.ListByRide(ctx, rideID)
}
