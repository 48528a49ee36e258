package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/metrics"
	"github.com/caronahq/carona-system/pkg/rabbit"
)

const (
	RideExchange = "ride_topic"

	QueueRideAudit = "ride_audit"
)

type RideBroker struct {
	client       *rabbit.RabbitMQ
	RideExchange string

	l logger.Logger
}

func NewRideBroker(client *rabbit.RabbitMQ, log logger.Logger) *RideBroker {
	return &RideBroker{
		client:       client,
		RideExchange: RideExchange,

		l: log,
	}
}

// PublishRideEvent публикует событие жизненного цикла поездки.
// Ключ маршрутизации: 'ride.event.{EVENT}', например "ride.event.SEAT_RESERVED".
func (r *RideBroker) PublishRideEvent(ctx context.Context, msg models.RideEventMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_ride_event")

	// Проверяем и восстанавливаем соединение
	if err := r.client.EnsureConnection(ctx); err != nil {
		r.l.Error(ctx, "ensure connection failed", err)
		metrics.RecordRabbitMQPublish("carona", r.RideExchange, err)
		return wrap.Error(ctx, err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	key := fmt.Sprintf("ride.event.%s", msg.Event)

	if err := retry(5, time.Second, func() error {
		if err := r.client.Channel.PublishWithContext(
			ctx,
			r.RideExchange, // exchange
			key,            // routing key
			false,          // mandatory
			false,          // immediate
			amqp091.Publishing{
				ContentType: "application/json",
				Body:        body,
				Timestamp:   time.Now(),
			},
		); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to publish with context: %w", err))
		}

		return nil
	}); err != nil {
		metrics.RecordRabbitMQPublish("carona", r.RideExchange, err)
		return wrap.Error(ctx, err)
	}

	metrics.RecordRabbitMQPublish("carona", r.RideExchange, nil)
	return nil
}
