package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"ms-registration/internal/auth"
	"ms-registration/internal/booking"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/tickets/qr"
	"ms-registration/internal/utils"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	BookingService *booking.BookingService
	Logger         *logger.Logger
}

func NewHandler(service *booking.BookingService, log *logger.Logger) *Handler {
	return &Handler{BookingService: service, Logger: log}
}

// Book handles POST /api/registrations. The request shape is validated
// here so the service only ever sees well-formed bookings.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if msg := validateBooking(req); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	h.Logger.LogBooking("REQUEST", req.EventID, req.SeatsBooked,
		fmt.Sprintf("booking requested by user %d", identity.UserID))

	ticket, err := h.BookingService.Book(r.Context(), identity, req)
	if err != nil {
		h.writeBookingError(w, req, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "registrationId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid registration id", http.StatusBadRequest)
		return
	}

	reg, err := h.BookingService.GetRegistration(r.Context(), identity, id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	regs, err := h.BookingService.ListRegistrations(r.Context(), identity)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListRegistrations: %v", err))
		http.Error(w, "Failed to retrieve registrations", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, regs)
}

// TicketQR handles GET /api/registrations/{registrationId}/qr and
// responds with a PNG of the ticket token.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "registrationId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid registration id", http.StatusBadRequest)
		return
	}

	reg, err := h.BookingService.GetRegistration(r.Context(), identity, id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	png, err := qr.Encode(reg.TicketToken)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TicketQR: failed to encode QR: %v", err))
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) writeBookingError(w http.ResponseWriter, req models.BookingRequest, err error) {
	var capErr *models.CapacityError
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "Event not found or not verified", http.StatusNotFound)
	case errors.As(err, &capErr):
		http.Error(w, fmt.Sprintf("Only %d seats remaining.", capErr.Remaining), http.StatusBadRequest)
	case errors.Is(err, models.ErrConflict):
		http.Error(w, "Booking conflicted with concurrent requests, please retry", http.StatusConflict)
	case errors.Is(err, models.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		h.Logger.Error("BOOKING", fmt.Sprintf("event=%d seats=%d transaction failed: %v",
			req.EventID, req.SeatsBooked, err))
		http.Error(w, "Registration failed due to a server error.", http.StatusInternalServerError)
	}
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "Registration not found", http.StatusNotFound)
	case errors.Is(err, models.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		h.Logger.Error("API", fmt.Sprintf("registration lookup failed: %v", err))
		http.Error(w, "Failed to retrieve registration", http.StatusInternalServerError)
	}
}

func validateBooking(req models.BookingRequest) string {
	if req.EventID <= 0 {
		return "event_id is required"
	}
	if strings.TrimSpace(req.FullName) == "" {
		return "full_name is required"
	}
	if strings.TrimSpace(req.Email) == "" {
		return "email is required"
	}
	if req.SeatsBooked < models.MinSeatsPerBooking || req.SeatsBooked > models.MaxSeatsPerBooking {
		return fmt.Sprintf("seats_booked must be between %d and %d",
			models.MinSeatsPerBooking, models.MaxSeatsPerBooking)
	}
	return ""
}
