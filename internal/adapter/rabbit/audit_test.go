package rabbit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/logger"
	"github.com/caronahq/carona-system/pkg/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func newTestAuditConsumer() *AuditConsumer {
	return NewAuditConsumer(nil, logger.NewDiscard())
}

// A closed delivery channel means the broker dropped us: drain must hand
// control back so the consumer re-establishes the subscription instead of
// spinning on the dead channel.
func TestDrainDeliveriesReconnectsOnClosedChannel(t *testing.T) {
	c := newTestAuditConsumer()

	msgs := make(chan amqp.Delivery)
	close(msgs)

	done := make(chan bool, 1)
	go func() {
		done <- c.drainDeliveries(context.Background(), msgs, func(context.Context, models.RideEventMessage) error {
			return nil
		})
	}()

	select {
	case reconnect := <-done:
		if !reconnect {
			t.Error("drainDeliveries = false on closed channel, want reconnect")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("drainDeliveries did not return after the channel closed")
	}
}

func TestDrainDeliveriesStopsOnContextCancel(t *testing.T) {
	c := newTestAuditConsumer()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msgs := make(chan amqp.Delivery)
	if reconnect := c.drainDeliveries(ctx, msgs, func(context.Context, models.RideEventMessage) error {
		return nil
	}); reconnect {
		t.Error("drainDeliveries = true on cancelled context, want clean stop")
	}
}

func TestDrainDeliveriesDispatchesToHandler(t *testing.T) {
	c := newTestAuditConsumer()

	event := models.RideEventMessage{
		Event:     types.EventRideCreated,
		RideID:    uuid.MustNew(),
		ActorID:   "joao@uni.br",
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	received := make(chan models.RideEventMessage, 1)
	fn := func(_ context.Context, msg models.RideEventMessage) error {
		received <- msg
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{Body: body}

	go c.drainDeliveries(ctx, msgs, fn)

	select {
	case got := <-received:
		if got.Event != event.Event || got.RideID != event.RideID || got.ActorID != event.ActorID {
			t.Errorf("handler got %+v, want %+v", got, event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
}
