package controllers

import (
	"log/slog"
	"net/http"

	"eventbooking/internal/delivery/http/helpers"
	"eventbooking/internal/delivery/http/middleware"
	"eventbooking/internal/domain"
)

// CreateBookingRequest is the request body for POST /bookings.
type CreateBookingRequest struct {
	UserID  int64 `json:"userId"`
	EventID int64 `json:"eventId"`
}

// Validate implements Validator.
func (c CreateBookingRequest) Validate() []string {
	var errs []string
	if c.UserID < 1 {
		errs = append(errs, "userId must be a positive integer")
	}
	if c.EventID < 1 {
		errs = append(errs, "eventId must be a positive integer")
	}
	return errs
}

// UpdateBookingRequest is the request body for PATCH /bookings/{bookingID}. Omitted fields are unchanged.
type UpdateBookingRequest struct {
	UserID  *int64 `json:"userId"`
	EventID *int64 `json:"eventId"`
}

// Validate implements Validator.
func (u UpdateBookingRequest) Validate() []string {
	var errs []string
	if u.UserID == nil && u.EventID == nil {
		errs = append(errs, "at least one of userId or eventId is required")
	}
	if u.UserID != nil && *u.UserID < 1 {
		errs = append(errs, "userId must be a positive integer")
	}
	if u.EventID != nil && *u.EventID < 1 {
		errs = append(errs, "eventId must be a positive integer")
	}
	return errs
}

// BookingSuccessResponse is the success envelope for endpoints returning one booking.
type BookingSuccessResponse struct {
	Data  *domain.Booking   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// BookingListSuccessResponse is the success envelope for GET /bookings.
type BookingListSuccessResponse struct {
	Data  []*domain.Booking `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserBookingsSuccessResponse is the success envelope for GET /bookings/byuser/{userID}.
type UserBookingsSuccessResponse struct {
	Data  []*domain.BookingWithEvent `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// DeleteBookingResponse is returned by DELETE /bookings/{bookingID}.
type DeleteBookingResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type BookingController struct {
	Logger  *slog.Logger
	Service domain.BookingService
}

func NewBookingController(logger *slog.Logger, svc domain.BookingService) *BookingController {
	return &BookingController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateBooking godoc
// @Summary Reserve a seat
// @Description Books one seat of an event for a user. Callers with role "user" may only book for themselves.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param booking body CreateBookingRequest true "User and event ids"
// @Success 201 {object} controllers.BookingSuccessResponse "data contains the created booking"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (event or user)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already booked or sold out)"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /bookings [post]
func (c *BookingController) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if !p.HasRole(domain.RoleAdmin, domain.RoleCreator) && p.UserID != req.UserID {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "cannot book on behalf of another user")
		return
	}
	booking, err := c.Service.Reserve(r.Context(), req.UserID, req.EventID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, booking)
}

// ListBookings godoc
// @Summary List all bookings
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.BookingListSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /bookings [get]
func (c *BookingController) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := c.Service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, bookings)
}

// GetBooking godoc
// @Summary Get a booking by ID
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param bookingID path int true "Booking ID"
// @Success 200 {object} controllers.BookingSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /bookings/{bookingID} [get]
func (c *BookingController) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "bookingID")
	if !ok {
		return
	}
	booking, err := c.Service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, booking)
}

// ListUserBookings godoc
// @Summary List a user's bookings with their events
// @Description Newest first. Users may only list their own bookings; admins and creators may list anyone's.
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param userID path int true "User ID"
// @Success 200 {object} controllers.UserBookingsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /bookings/byuser/{userID} [get]
func (c *BookingController) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.PathID(w, r, "userID")
	if !ok {
		return
	}
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if !p.HasRole(domain.RoleAdmin, domain.RoleCreator) && p.UserID != userID {
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "cannot list another user's bookings")
		return
	}
	items, err := c.Service.ListByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, items)
}

// UpdateBooking godoc
// @Summary Reassign a booking
// @Description Moves a booking to another user and/or event. Moving between events releases a seat on the old event and takes one on the new event atomically.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bookingID path int true "Booking ID"
// @Param body body UpdateBookingRequest true "Fields to change (at least one)"
// @Success 200 {object} controllers.BookingSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /bookings/{bookingID} [patch]
func (c *BookingController) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "bookingID")
	if !ok {
		return
	}
	var req UpdateBookingRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	booking, err := c.Service.Reassign(r.Context(), id, domain.BookingUpdate{UserID: req.UserID, EventID: req.EventID})
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, booking)
}

// DeleteBooking godoc
// @Summary Cancel a booking
// @Description Deletes the booking and gives its seat back to the event.
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param bookingID path int true "Booking ID"
// @Success 200 {object} helpers.APIResponse "data contains id and message"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /bookings/{bookingID} [delete]
func (c *BookingController) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "bookingID")
	if !ok {
		return
	}
	if err := c.Service.Cancel(r.Context(), id); err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteBookingResponse{ID: id, Message: "booking cancelled"})
}
