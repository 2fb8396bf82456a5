package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"eventbooking/config"
	"eventbooking/internal/adapters/auth"
	"eventbooking/internal/adapters/email"
	"eventbooking/internal/adapters/notify"
	httpdelivery "eventbooking/internal/delivery/http"
	"eventbooking/internal/delivery/http/controllers"
	"eventbooking/internal/delivery/http/middleware"
	"eventbooking/internal/domain"
	"eventbooking/internal/repository/memory"
	"eventbooking/internal/repository/postgres"
	"eventbooking/internal/services"
)

// @title Event Booking API
// @version 1.0
// @description Seat reservations for capacity-limited events.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := config.NewLogger("api")
	if err := run(logger); err != nil {
		logger.Error("api exited", "err", err)
		os.Exit(1)
	}
}

type storage struct {
	tx       domain.Transactor
	events   domain.EventRepository
	users    domain.UserRepository
	bookings domain.BookingRepository
	close    func() error
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

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
		return err
	}
	emailSvc := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	notifier, closeNotifier, err := newNotifier(cfg.Notifier, emailSvc, logger)
	if err != nil {
		return err
	}

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", "err", err)
	}
	var scripter redis.Scripter
	if rdb != nil {
		scripter = rdb
		defer rdb.Close()
	}

	handler := newHandler(cfg, store, notifier, scripter, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.Environment, "storage", cfg.StorageDriver, "notifier", cfg.Notifier.Kind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	if err := closeNotifier(shutdownCtx); err != nil {
		logger.Warn("notifier shutdown", "err", err)
	}
	return nil
}

// newHandler builds the services and the HTTP stack on top of store.
func newHandler(cfg *config.Config, store *storage, notifier domain.ReservationNotifier, scripter redis.Scripter, logger *slog.Logger) http.Handler {
	bookingSvc := services.NewBookingService(store.tx, store.events, store.users, store.bookings,
		notifier, logger, cfg.ContextTimeout, cfg.ReservationMaxAttempts)
	eventSvc := services.NewEventService(store.tx, store.events, store.bookings, cfg.ContextTimeout)

	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET is empty, using an insecure development secret")
		secret = "development-secret"
	}

	mux := httpdelivery.NewRouter(httpdelivery.RouterConfig{
		Bookings: controllers.NewBookingController(logger, bookingSvc),
		Events:   controllers.NewEventController(logger, eventSvc),
		Verifier: auth.NewJWTVerifier(secret),
		Logger:   logger,
		BookingLimiter: middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:        cfg.RateLimit.Enabled,
			Capacity:       cfg.RateLimit.Capacity,
			RefillTokens:   cfg.RateLimit.RefillTokens,
			RefillInterval: cfg.RateLimit.RefillInterval,
		}, scripter, logger),
	})

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORSAllowedOrigins, handler)
	return middleware.LoggingMiddleware(logger, handler)
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.StorageDriver == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		s := memory.NewStore()
		for _, u := range cfg.SeedUsers {
			s.PutUser(u)
		}
		if len(cfg.SeedUsers) == 0 {
			logger.Warn("memory storage has no users, set SEED_USERS to allow bookings")
		}
		return &storage{
			tx:       s,
			events:   s.Events(),
			users:    s.Users(),
			bookings: s.Bookings(),
			close:    func() error { return nil },
		}, nil
	}
	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	return &storage{
		tx:       postgres.NewTransactor(db),
		events:   postgres.NewEventRepository(db),
		users:    postgres.NewUserRepository(db),
		bookings: postgres.NewBookingRepository(db),
		close:    db.Close,
	}, nil
}

func newNotifier(cfg config.NotifierConfig, emailSvc domain.EmailService, logger *slog.Logger) (domain.ReservationNotifier, func(context.Context) error, error) {
	switch cfg.Kind {
	case "amqp":
		n, err := notify.DialAMQP(cfg.RabbitMQURL, cfg.Queue, logger)
		if err != nil {
			return nil, nil, err
		}
		return n, func(context.Context) error { return n.Close() }, nil
	case "noop":
		return notify.Noop{Logger: logger}, func(context.Context) error { return nil }, nil
	default:
		d := notify.NewDispatcher(emailSvc, logger, cfg.Workers, cfg.QueueSize, cfg.SendTimeout)
		return d, d.Close, nil
	}
}
