// Package notify publishes domain events to RabbitMQ. Delivery is best-effort: errors
// are logged and returned so callers can decide to carry on.
package notify

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ManuelReschke/CourseFox/internal/pkg/logger"
)

const QueuePurchaseFulfilled = "purchase.fulfilled"

// PurchaseFulfilled is emitted once per newly created purchase.
type PurchaseFulfilled struct {
	PurchaseID       string    `json:"purchase_id"`
	PaymentSessionID string    `json:"payment_session_id"`
	UserID           string    `json:"user_id"`
	ProductID        string    `json:"product_id"`
	CourseIDs        []string  `json:"course_ids"`
	PricePaidInCents int       `json:"price_paid_in_cents"`
	FulfilledAt      time.Time `json:"fulfilled_at"`
}

type Publisher interface {
	PublishPurchaseFulfilled(ctx context.Context, event PurchaseFulfilled) error
}

// AMQPPublisher dials per message, which is fine at purchase volume.
type AMQPPublisher struct {
	url string
	log *logger.Logger
}

func NewAMQPPublisher(url string, log *logger.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log}
}

func (p *AMQPPublisher) PublishPurchaseFulfilled(ctx context.Context, event PurchaseFulfilled) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("rabbitmq: marshal event failed", "error", err)
		return err
	}
	return p.publish(ctx, QueuePurchaseFulfilled, body)
}

func (p *AMQPPublisher) publish(ctx context.Context, queue string, body []byte) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error("rabbitmq: dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error("rabbitmq: channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.log.Error("rabbitmq: queue declare failed", "queue", queue, "error", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.log.Error("rabbitmq: publish failed", "queue", queue, "error", err)
		return err
	}
	return nil
}

// Noop discards events. Used when AMQP_URL is unset.
type Noop struct{}

func (Noop) PublishPurchaseFulfilled(context.Context, PurchaseFulfilled) error { return nil }

// New picks the AMQP publisher when a broker URL is configured.
func New(url string, log *logger.Logger) Publisher {
	if url == "" {
		return Noop{}
	}
	return NewAMQPPublisher(url, log)
}
