package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/logger"
	"github.com/caronahq/carona-system/pkg/uuid"
)

type fakeMessageRepo struct {
	messages []models.Message
}

func (f *fakeMessageRepo) Append(_ context.Context, msg *models.Message) error {
	msg.ID = uuid.MustNew()
	msg.CreatedAt = time.Now()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageRepo) ListByRide(_ context.Context, rideID uuid.UUID) ([]models.Message, error) {
	// Newest first, like the store.
	out := []models.Message{}
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].RideID == rideID {
			out = append(out, f.messages[i])
		}
	}
	return out, nil
}

type fakeRideRepo struct {
	ride *models.Ride
}

func (f *fakeRideRepo) Get(_ context.Context, rideID uuid.UUID) (*models.Ride, error) {
	if f.ride == nil || f.ride.ID != rideID {
		return nil, types.ErrRideNotFound
	}
	cp := *f.ride
	return &cp, nil
}

func ctxAs(email string) context.Context {
	u := &models.User{Email: email, Name: email, Role: types.RoleBoth}
	return models.WithSession(context.Background(), models.NewSession(u))
}

func TestSendAndList(t *testing.T) {
	ride := &models.Ride{
		ID:         uuid.MustNew(),
		DriverID:   "driver@uni.br",
		Passengers: []string{"rider@uni.br"},
		Status:     types.RideActive,
	}
	msgs := &fakeMessageRepo{}
	svc := NewChatService(msgs, &fakeRideRepo{ride: ride}, logger.NewDiscard())

	first, err := svc.Send(ctxAs("driver@uni.br"), ride.ID, "Saio às 18h")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if first.SenderID != "driver@uni.br" || first.Text != "Saio às 18h" {
		t.Errorf("message = %+v", first)
	}

	if _, err := svc.Send(ctxAs("rider@uni.br"), ride.ID, "Combinado"); err != nil {
		t.Fatalf("Send reply: %v", err)
	}

	list, err := svc.List(ctxAs("rider@uni.br"), ride.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Text != "Combinado" {
		t.Errorf("list = %+v, want newest first", list)
	}
}

func TestChatParticipantsOnly(t *testing.T) {
	ride := &models.Ride{
		ID:         uuid.MustNew(),
		DriverID:   "driver@uni.br",
		Passengers: []string{},
		Status:     types.RideActive,
	}
	svc := NewChatService(&fakeMessageRepo{}, &fakeRideRepo{ride: ride}, logger.NewDiscard())

	if _, err := svc.Send(ctxAs("stranger@uni.br"), ride.ID, "oi"); !errors.Is(err, types.ErrNotParticipant) {
		t.Errorf("outsider send err = %v, want ErrNotParticipant", err)
	}
	if _, err := svc.List(ctxAs("stranger@uni.br"), ride.ID); !errors.Is(err, types.ErrNotParticipant) {
		t.Errorf("outsider list err = %v, want ErrNotParticipant", err)
	}
	if _, err := svc.Send(ctxAs("driver@uni.br"), ride.ID, "   "); !errors.Is(err, types.ErrEmptyMessage) {
		t.Errorf("blank send err = %v, want ErrEmptyMessage", err)
	}
}
