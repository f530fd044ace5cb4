package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Sink delivers a notification to its recipient.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// StartNotificationConsumer connects to the broker, declares the queue and
// hands every message to sink.  It reconnects with backoff until ctx is
// cancelled, which is the only way it returns.  A message the sink rejects
// is nacked without requeue so one bad payload cannot spin the loop.
func StartNotificationConsumer(ctx context.Context, url, queue string, sink Sink, logger *slog.Logger) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("notification consumer: dial failed",
				slog.String("error", err.Error()), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, sink, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("notification consumer: loop ended, reconnecting", slog.String("error", err.Error()))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, sink Sink, logger *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("notification consumer: set QoS failed", slog.String("error", err.Error()))
	}
	if err := declare(ch, queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(ctx, d.Body, sink); err != nil {
				logger.Error("notification consumer: handle message failed", slog.String("error", err.Error()))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one message body and delivers it.
func HandleMessage(ctx context.Context, body []byte, sink Sink) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.Email == "" {
		return errors.New("event without type or recipient")
	}
	return sink.Deliver(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// FileOutbox is the development mailer: it appends one line per message to
// a file so the reset link can be picked up by hand.
type FileOutbox struct {
	Path string
	mu   sync.Mutex
}

// Deliver appends ev to the outbox file.
func (o *FileOutbox) Deliver(_ context.Context, ev Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(o.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir outbox: %w", err)
	}
	f, err := os.OpenFile(o.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	defer f.Close()

	var line string
	switch ev.Type {
	case EventPasswordResetRequested:
		line = fmt.Sprintf("[%s] to=%s subject=\"Password reset\" token=%s expires=%s\n",
			ev.OccurredAt.Format(time.RFC3339), ev.Email, ev.ResetToken, ev.ExpiresAt.Format(time.RFC3339))
	case EventUserRegistered:
		line = fmt.Sprintf("[%s] to=%s subject=\"Welcome %s\"\n",
			ev.OccurredAt.Format(time.RFC3339), ev.Email, ev.FirstName)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	return nil
}
