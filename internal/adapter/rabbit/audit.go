package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/rabbit"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditConsumer drains the ride lifecycle topic into the audit trail. It is
// the only place deleted rides survive: the RIDE_DELETED message carries the
// final snapshot.
type AuditConsumer struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewAuditConsumer(client *rabbit.RabbitMQ, l logger.Logger) *AuditConsumer {
	return &AuditConsumer{client: client, l: l}
}

type AuditHandlerFunc func(ctx context.Context, msg models.RideEventMessage) error

// declareAndBindQueue объявляет и привязывает очередь к exchange.
func (r *AuditConsumer) declareAndBindQueue(ctx context.Context, queueName, bindingKey, exchangeName string) (amqp.Queue, error) {
	const op = "AuditConsumer.declareAndBindQueue"

	q, err := r.client.Channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: declare queue failed: %w", op, err))
	}

	if err := r.client.Channel.QueueBind(q.Name, bindingKey, exchangeName, false, nil); err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: bind queue failed: %w", op, err))
	}

	return q, nil
}

func (r *AuditConsumer) handleMessage(ctx context.Context, fn AuditHandlerFunc, msg amqp.Delivery) {
	const op = "AuditConsumer.handleMessage"

	var event models.RideEventMessage
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		r.l.Error(ctx, "decode failed", err, "op", op)
		_ = msg.Nack(false, false)
		return
	}

	if err := fn(ctx, event); err != nil {
		r.l.Error(ctx, "audit handler failed", err, "op", op)
		_ = msg.Nack(false, true)
		return
	}

	if err := msg.Ack(false); err != nil {
		r.l.Warn(ctx, "ack failed", "error", err.Error(), "op", op)
	}
}

// ConsumeRideEvents слушает ride.event.* события и передаёт их в обработчик fn.
func (r *AuditConsumer) ConsumeRideEvents(ctx context.Context, fn AuditHandlerFunc) error {
	const op = "AuditConsumer.ConsumeRideEvents"

	// Основной цикл потребителя
	for {
		if ctx.Err() != nil {
			r.l.Debug(ctx, "ride event consumer stopped by context")
			return nil
		}

		// Проверяем и восстанавливаем соединение
		if err := r.client.EnsureConnection(ctx); err != nil {
			r.l.Error(ctx, "ensure connection failed", err, "op", op)
			time.Sleep(2 * time.Second)
			continue
		}

		// Гарантируем наличие exchange
		if err := r.client.Channel.ExchangeDeclare(RideExchange, "topic", true, false, false, false, nil); err != nil {
			r.l.Error(ctx, "declare exchange failed", err, "op", op)
			time.Sleep(3 * time.Second)
			continue
		}

		// Объявляем и биндим очередь
		q, err := r.declareAndBindQueue(ctx, QueueRideAudit, "ride.event.*", RideExchange)
		if err != nil {
			r.l.Error(ctx, "declare queue failed", err, "op", op)
			time.Sleep(2 * time.Second)
			continue
		}

		// Подписываемся на очередь
		msgs, err := r.client.Channel.Consume(q.Name, "", false, false, false, false, nil)
		if err != nil {
			r.l.Error(ctx, "consume failed", err, "op", op)
			time.Sleep(2 * time.Second)
			continue
		}

		r.l.Info(ctx, "start consuming ride events", "queue", q.Name)

		if !r.drainDeliveries(ctx, msgs, fn) {
			r.l.Info(ctx, "ride event consumer shutting down", "op", op)
			return nil
		}

		r.l.Warn(ctx, "message channel closed, reconnecting...", "op", op)
		time.Sleep(2 * time.Second)
	}
}

// drainDeliveries читает сообщения до закрытия канала или отмены контекста.
// Возвращает true, когда нужно пересоздать подписку.
func (r *AuditConsumer) drainDeliveries(ctx context.Context, msgs <-chan amqp.Delivery, fn AuditHandlerFunc) bool {
	for {
		select {
		case <-ctx.Done():
			return false

		case msg, ok := <-msgs:
			if !ok {
				return true
			}

			go r.handleMessage(ctx, fn, msg)
		}
	}
}
