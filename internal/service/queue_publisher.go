// Package queue_publisher provides functions to publish domain events to
// RabbitMQ. Errors are logged and returned to allow callers to ignore
// failures without interrupting the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/souschef/sous-chef/internal/logger"
	q "github.com/souschef/sous-chef/internal/queue"
)

// PublishSessionCompleted publishes a SessionCompletedEvent to the
// "session.completed" queue. The function never panics; any error is
// logged and returned so the caller can choose to ignore it. A failed
// publish must not undo the completed session. Messages are marked as
// persistent.
func PublishSessionCompleted(ctx context.Context, event q.SessionCompletedEvent) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		logger.L().Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.L().Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive
	// broker restarts.
	if _, err := ch.QueueDeclare(
		"session.completed", // name
		true,                // durable
		false,               // autoDelete
		false,               // exclusive
		false,               // noWait
		nil,                 // args
	); err != nil {
		logger.L().Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		logger.L().Warn("rabbitmq: marshal event failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                  // default exchange
		"session.completed", // routing key = queue name
		false,               // mandatory
		false,               // immediate
		pub,
	); err != nil {
		logger.L().Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}

	return nil
}
