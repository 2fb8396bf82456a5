package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventbooking/internal/domain"
)

const bookingConfirmedTemplate = "booking_confirmed"

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendBookingConfirmation sends the reservation email using the "booking_confirmed" template.
func (s *emailService) SendBookingConfirmation(ctx context.Context, data *domain.BookingConfirmedEmailData) error {
	if data == nil {
		return fmt.Errorf("booking confirmation data is nil")
	}
	if data.Email == "" {
		return fmt.Errorf("%w: recipient email is empty", domain.ErrInvalidInput)
	}
	subject, htmlBody, textBody, err := s.renderer.Render(bookingConfirmedTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", bookingConfirmedTemplate, err)
	}
	if err := s.mailer.Send(ctx, data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send booking confirmation email: %w", err)
	}
	s.logger.InfoContext(ctx, "booking confirmation sent", "to", data.Email, "booking_id", data.Summary.BookingID)
	return nil
}
