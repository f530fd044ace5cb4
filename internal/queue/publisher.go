package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to a durable RabbitMQ queue.  It dials per
// publish; notification volume is a handful of messages per user action.
type Publisher struct {
	url    string
	queue  string
	logger *slog.Logger
}

// NewPublisher returns a publisher for queue on the broker at url.
func NewPublisher(url, queue string, logger *slog.Logger) *Publisher {
	return &Publisher{url: url, queue: queue, logger: logger}
}

// Publish sends ev as a persistent JSON message.  Errors are logged and
// returned so the caller can decide to carry on.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.WarnContext(ctx, "rabbitmq dial failed", slog.String("error", err.Error()))
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch, p.queue); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.logger.WarnContext(ctx, "rabbitmq publish failed",
			slog.String("event", ev.Type), slog.String("error", err.Error()))
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// declare makes sure the durable queue exists (idempotent).
func declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}
