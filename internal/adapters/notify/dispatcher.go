// Package notify delivers reservation notifications outside the request path.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"eventbooking/internal/domain"
)

// ErrDispatcherClosed is returned by NotifyReservation after Close.
var ErrDispatcherClosed = errors.New("notification dispatcher is closed")

const (
	DefaultWorkers     = 2
	DefaultQueueSize   = 256
	DefaultSendTimeout = 10 * time.Second
)

type job struct {
	ctx     context.Context
	summary domain.ReservationSummary
	email   string
}

// Dispatcher is a ReservationNotifier backed by a bounded queue and a fixed set
// of workers that send the confirmation email.
type Dispatcher struct {
	email       domain.EmailService
	logger      *slog.Logger
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines. Non-positive arguments fall back to defaults.
func NewDispatcher(email domain.EmailService, logger *slog.Logger, workers, queueSize int, sendTimeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	d := &Dispatcher{
		email:       email,
		logger:      logger.With("component", "notify.dispatcher"),
		sendTimeout: sendTimeout,
		jobs:        make(chan job, queueSize),
	}
	d.wg.Add(workers)
	for range workers {
		go d.work()
	}
	return d
}

// NotifyReservation queues the notification and returns immediately. The send
// itself runs on a context detached from ctx's cancellation.
func (d *Dispatcher) NotifyReservation(ctx context.Context, summary domain.ReservationSummary, email string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), summary: summary, email: email}:
		return nil
	default:
		return domain.ErrNotificationQueueFull
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.send(j)
	}
}

func (d *Dispatcher) send(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.sendTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			d.logger.ErrorContext(ctx, "notification send panicked", "booking_id", j.summary.BookingID, "panic", p)
		}
	}()

	data := &domain.BookingConfirmedEmailData{Email: j.email, Summary: j.summary}
	if err := d.email.SendBookingConfirmation(ctx, data); err != nil {
		d.logger.WarnContext(ctx, "notification send failed", "booking_id", j.summary.BookingID, "err", err)
	}
}

// Close stops accepting notifications and waits for queued ones to be sent or
// for ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
