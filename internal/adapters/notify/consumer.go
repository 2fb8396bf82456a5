package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"eventbooking/internal/domain"
)

const maxReconnectBackoff = 30 * time.Second

// Consumer reads ReservationConfirmed messages and sends the confirmation email.
type Consumer struct {
	Email       domain.EmailService
	Logger      *slog.Logger
	Queue       string
	Prefetch    int
	SendTimeout time.Duration
}

// Run consumes from the broker at url until ctx is done, reconnecting with
// exponential backoff whenever the connection drops.
func (c *Consumer) Run(ctx context.Context, url string) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err == nil {
			backoff = time.Second
			err = c.consume(ctx, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		c.Logger.WarnContext(ctx, "consumer disconnected, retrying", "err", err, "backoff", backoff)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxReconnectBackoff)
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	queue := c.Queue
	if queue == "" {
		queue = ReservationConfirmedQueue
	}
	prefetch := c.Prefetch
	if prefetch < 1 {
		prefetch = 20
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}
	c.Logger.InfoContext(ctx, "consuming reservation messages", "queue", queue)

	for d := range deliveries {
		c.process(ctx, d)
	}
	return errors.New("deliveries channel closed")
}

// process acks, requeues or drops d depending on how Handle fails. A message
// whose email could not be sent is requeued once.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	err := c.Handle(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, domain.ErrInvalidInput):
		c.Logger.WarnContext(ctx, "dropping malformed reservation message", "message_id", d.MessageId, "err", err)
		_ = d.Nack(false, false)
	default:
		c.Logger.ErrorContext(ctx, "reservation message failed", "message_id", d.MessageId, "redelivered", d.Redelivered, "err", err)
		_ = d.Nack(false, !d.Redelivered)
	}
}

// Handle decodes one message body and sends the confirmation email.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var msg ReservationConfirmed
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: decode message: %v", domain.ErrInvalidInput, err)
	}
	if err := msg.validate(); err != nil {
		return err
	}
	timeout := c.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Email.SendBookingConfirmation(ctx, &domain.BookingConfirmedEmailData{Email: msg.Email, Summary: msg.Reservation})
}
