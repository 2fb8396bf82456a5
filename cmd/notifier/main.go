package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"eventbooking/config"
	"eventbooking/internal/adapters/email"
	"eventbooking/internal/adapters/notify"
	"eventbooking/internal/services"
)

// The notifier worker consumes reservation messages published by the API
// when NOTIFIER=amqp and sends the confirmation emails.
func main() {
	logger := config.NewLogger("notifier")
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("create mailer", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := &notify.Consumer{
		Email:       services.NewEmailService(mailer, email.NewTemplateRenderer(), logger),
		Logger:      logger.With("component", "notify.consumer"),
		Queue:       cfg.Notifier.Queue,
		Prefetch:    cfg.Notifier.Workers,
		SendTimeout: cfg.Notifier.SendTimeout,
	}
	logger.Info("notifier started", "queue", consumer.Queue)
	if err := consumer.Run(ctx, cfg.Notifier.RabbitMQURL); err != nil {
		logger.Error("consumer stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("notifier stopped")
}
