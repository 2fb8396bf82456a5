package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventbooking/internal/delivery/http/controllers"
	"eventbooking/internal/delivery/http/helpers"
	"eventbooking/internal/delivery/http/middleware"
	"eventbooking/internal/domain"
)

// RouterConfig holds what NewRouter needs to mount the API.
type RouterConfig struct {
	Bookings *controllers.BookingController
	Events   *controllers.EventController
	Verifier domain.TokenVerifier
	Logger   *slog.Logger
	// BookingLimiter wraps POST /bookings. Nil means no limit.
	BookingLimiter func(http.HandlerFunc) http.HandlerFunc
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	authed := middleware.RequireAuth(cfg.Verifier, cfg.Logger)
	staff := middleware.RequireRole(domain.RoleAdmin, domain.RoleCreator)
	limit := cfg.BookingLimiter
	if limit == nil {
		limit = func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	// Bookings
	mux.HandleFunc("POST /bookings", middleware.Chain(cfg.Bookings.CreateBooking, authed, limit))
	mux.HandleFunc("GET /bookings", middleware.Chain(cfg.Bookings.ListBookings, authed, staff))
	mux.HandleFunc("GET /bookings/byuser/{userID}", middleware.Chain(cfg.Bookings.ListUserBookings, authed))
	mux.HandleFunc("GET /bookings/{bookingID}", middleware.Chain(cfg.Bookings.GetBooking, authed, staff))
	mux.HandleFunc("PATCH /bookings/{bookingID}", middleware.Chain(cfg.Bookings.UpdateBooking, authed, staff))
	mux.HandleFunc("DELETE /bookings/{bookingID}", middleware.Chain(cfg.Bookings.DeleteBooking, authed, staff))

	// Events
	mux.HandleFunc("POST /events", middleware.Chain(cfg.Events.CreateEvent, authed, staff))
	mux.HandleFunc("GET /events", middleware.Chain(cfg.Events.ListEvents, authed))
	mux.HandleFunc("GET /events/{eventID}", middleware.Chain(cfg.Events.GetEvent, authed))
	mux.HandleFunc("PATCH /events/{eventID}", middleware.Chain(cfg.Events.UpdateEvent, authed, staff))
	mux.HandleFunc("DELETE /events/{eventID}", middleware.Chain(cfg.Events.DeleteEvent, authed, staff))

	mux.HandleFunc("GET /health", health)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse
// @Router /health [get]
func health(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
