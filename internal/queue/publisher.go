package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends messages to RabbitMQ. Each publish dials a fresh
// connection; publish volume is low (one message per booking action)
// and a short-lived connection keeps the publisher free of channel
// state and reconnect bookkeeping. Errors are logged and returned so
// callers can ignore failures without interrupting the request flow.
type Publisher struct {
	url string
	log *logrus.Logger
}

// NewPublisher returns a Publisher that dials the given AMQP URL.
func NewPublisher(url string, log *logrus.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishBookingConfirmed sends a confirmation message to the
// booking.confirmed queue.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, msg BookingConfirmedMessage) error {
	return p.publish(ctx, QueueBookingConfirmed, msg)
}

// PublishBookingCancelled sends a cancellation message to the
// booking.cancelled queue.
func (p *Publisher) PublishBookingCancelled(ctx context.Context, msg BookingCancelledMessage) error {
	return p.publish(ctx, QueueBookingCancelled, msg)
}

// PublishReminderDue sends a due reminder to the reminder.due queue.
func (p *Publisher) PublishReminderDue(ctx context.Context, msg ReminderDueMessage) error {
	return p.publish(ctx, QueueReminderDue, msg)
}

func (p *Publisher) publish(ctx context.Context, queueName string, payload interface{}) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WithError(err).WithField("queue", queueName).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).WithField("queue", queueName).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare. Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.log.WithError(err).WithField("queue", queueName).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.log.WithError(err).WithField("queue", queueName).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}
