package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"ms-registration/internal/auth"
	"ms-registration/internal/events"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/utils"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	EventService *events.EventService
	Logger       *logger.Logger
}

func NewHandler(service *events.EventService, log *logger.Logger) *Handler {
	return &Handler{EventService: service, Logger: log}
}

// SubmitEvent handles POST /api/events. The event starts pending and
// becomes bookable once an admin verifies it.
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if msg := validateEventRequest(req); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	event, err := h.EventService.Submit(r.Context(), identity, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("SubmitEvent: %v", err))
		http.Error(w, "Failed to submit event request", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse(
		"Event request submitted successfully. Waiting for admin verification.",
		map[string]int64{"event_id": event.ID},
	))
}

// ListEvents handles GET /api/events and returns verified events only.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	eventList, err := h.EventService.List(r.Context(), models.EventStatusVerified)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListEvents: %v", err))
		http.Error(w, "Failed to retrieve events", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, eventList)
}

// ListPendingEvents handles GET /api/admin/events/pending.
func (h *Handler) ListPendingEvents(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	eventList, err := h.EventService.ListPending(r.Context(), identity)
	if err != nil {
		if errors.Is(err, models.ErrForbidden) {
			http.Error(w, "admin privileges required", http.StatusForbidden)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("ListPendingEvents: %v", err))
		http.Error(w, "Failed to retrieve events", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, eventList)
}

// VerifyEvent handles POST /api/admin/events/{eventId}/verify.
func (h *Handler) VerifyEvent(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	if err := h.EventService.Verify(r.Context(), identity, eventID); err != nil {
		switch {
		case errors.Is(err, models.ErrForbidden):
			http.Error(w, "admin privileges required", http.StatusForbidden)
		case errors.Is(err, models.ErrNotFound):
			http.Error(w, "Event not found or already verified.", http.StatusNotFound)
		default:
			h.Logger.Error("API", fmt.Sprintf("VerifyEvent: %v", err))
			http.Error(w, "Failed to verify event", http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(
		fmt.Sprintf("Event ID %d verified successfully.", eventID), nil))
}

func validateEventRequest(req models.EventRequest) string {
	if len(strings.TrimSpace(req.Name)) < 3 {
		return "name must be at least 3 characters"
	}
	if strings.TrimSpace(req.EventDate) == "" {
		return "event_date is required"
	}
	if strings.TrimSpace(req.Location) == "" {
		return "location is required"
	}
	if req.TotalSeats <= 0 {
		return "total_seats must be positive"
	}
	return ""
}
