package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"eventbooking/internal/domain"
)

// publisher is the part of *amqp.Channel the notifier uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// dialer opens a fresh channel with the queue declared, plus a func that
// releases it.
type dialer func() (publisher, func() error, error)

// AMQPNotifier publishes ReservationConfirmed messages to a durable queue on the
// default exchange. When built by DialAMQP a failed publish redials the broker
// once and retries.
type AMQPNotifier struct {
	queue  string
	logger *slog.Logger
	dial   dialer

	mu     sync.Mutex
	ch     publisher
	closer func() error
}

// NewAMQPNotifier publishes through ch.
func NewAMQPNotifier(ch publisher, queue string, logger *slog.Logger) *AMQPNotifier {
	if queue == "" {
		queue = ReservationConfirmedQueue
	}
	return &AMQPNotifier{ch: ch, queue: queue, logger: logger, closer: func() error { return nil }}
}

// DialAMQP connects to the broker at url and declares queue.
func DialAMQP(url, queue string, logger *slog.Logger) (*AMQPNotifier, error) {
	if queue == "" {
		queue = ReservationConfirmedQueue
	}
	dial := func() (publisher, func() error, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("declare queue %s: %w", queue, err)
		}
		return ch, func() error {
			_ = ch.Close()
			return conn.Close()
		}, nil
	}
	return newRedialingNotifier(dial, queue, logger)
}

func newRedialingNotifier(dial dialer, queue string, logger *slog.Logger) (*AMQPNotifier, error) {
	ch, closer, err := dial()
	if err != nil {
		return nil, err
	}
	n := NewAMQPNotifier(ch, queue, logger)
	n.dial, n.closer = dial, closer
	return n, nil
}

// current returns the channel to publish on.
func (n *AMQPNotifier) current() publisher {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}

// reconnect replaces stale with a freshly dialled channel. A caller that lost
// the race to another reconnect gets the channel that one opened.
func (n *AMQPNotifier) reconnect(ctx context.Context, stale publisher) (publisher, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != stale {
		return n.ch, nil
	}
	_ = n.closer()
	ch, closer, err := n.dial()
	if err != nil {
		n.closer = func() error { return nil }
		return nil, err
	}
	n.ch, n.closer = ch, closer
	n.logger.InfoContext(ctx, "reconnected to rabbitmq", "queue", n.queue)
	return ch, nil
}

func (n *AMQPNotifier) NotifyReservation(ctx context.Context, summary domain.ReservationSummary, email string) error {
	msg := ReservationConfirmed{
		MessageID:   uuid.NewString(),
		Email:       email,
		Reservation: summary,
		ConfirmedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal reservation message: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.MessageID,
		Timestamp:    msg.ConfirmedAt,
		Type:         ReservationConfirmedQueue,
		Body:         body,
	}
	ch := n.current()
	err = ch.PublishWithContext(ctx, "", n.queue, false, false, pub)
	if err != nil && n.dial != nil {
		n.logger.WarnContext(ctx, "publish failed, redialing rabbitmq", "err", err)
		fresh, dialErr := n.reconnect(ctx, ch)
		if dialErr != nil {
			return fmt.Errorf("publish reservation message: %w (redial: %v)", err, dialErr)
		}
		err = fresh.PublishWithContext(ctx, "", n.queue, false, false, pub)
	}
	if err != nil {
		return fmt.Errorf("publish reservation message: %w", err)
	}
	n.logger.DebugContext(ctx, "reservation message published", "message_id", msg.MessageID, "booking_id", summary.BookingID)
	return nil
}

// Close releases the broker channel and connection opened by DialAMQP.
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closer()
}
