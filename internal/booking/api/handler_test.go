package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"ms-registration/internal/auth"
	"ms-registration/internal/booking"
	booking_api "ms-registration/internal/booking/api"
	booking_db "ms-registration/internal/booking/db"
	"ms-registration/internal/events"
	events_api "ms-registration/internal/events/api"
	events_db "ms-registration/internal/events/db"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

type testServer struct {
	router *chi.Mux
	bunDB  *bun.DB
	issuer *auth.Issuer
}

func setupServer(t *testing.T) *testServer {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Sequence)(nil),
		(*models.Event)(nil),
		(*models.Registration)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	log := logger.NewLogger()
	issuer := auth.NewIssuer("test-secret", time.Hour)

	eventService := events.NewEventService(&events_db.DB{Bun: bunDB}, nil, nil, log, events.Topics{})
	bookingService := booking.NewBookingService(&booking_db.DB{Bun: bunDB}, nil, nil, log, "")

	eventHandler := events_api.NewHandler(eventService, log)
	bookingHandler := booking_api.NewHandler(bookingService, log)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(issuer))
		r.Route("/api", func(r chi.Router) {
			r.Post("/events", eventHandler.SubmitEvent)
			r.Route("/registrations", func(r chi.Router) {
				r.Post("/", bookingHandler.Book)
				r.Get("/{registrationId}", bookingHandler.GetRegistration)
				r.Get("/{registrationId}/qr", bookingHandler.TicketQR)
			})
			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Post("/events/{eventId}/verify", eventHandler.VerifyEvent)
			})
		})
	})

	return &testServer{router: r, bunDB: bunDB, issuer: issuer}
}

func (s *testServer) token(t *testing.T, userID int64, role string) string {
	token, err := s.issuer.IssueToken(models.User{ID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func bookingBody(eventID int64, seats int) map[string]interface{} {
	return map[string]interface{}{
		"event_id":     eventID,
		"full_name":    "Alice Wonderland",
		"email":        "alice@example.com",
		"seats_booked": seats,
	}
}

func TestBookingFlowOverHTTP(t *testing.T) {
	server := setupServer(t)
	userToken := server.token(t, 7, models.RoleUser)
	adminToken := server.token(t, 1, models.RoleAdmin)

	// No token at all.
	rec := server.do(t, http.MethodPost, "/api/registrations/", "", bookingBody(1, 2))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Submit an event with 10 seats.
	rec = server.do(t, http.MethodPost, "/api/events", userToken, map[string]interface{}{
		"name":        "Summer Fest",
		"event_date":  "2026-10-01",
		"location":    "Riverside Park",
		"total_seats": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Booking before verification is NotFound.
	rec = server.do(t, http.MethodPost, "/api/registrations/", userToken, bookingBody(1, 2))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Non-admins cannot verify.
	rec = server.do(t, http.MethodPost, "/api/admin/events/1/verify", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = server.do(t, http.MethodPost, "/api/admin/events/1/verify", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Re-verification is rejected.
	rec = server.do(t, http.MethodPost, "/api/admin/events/1/verify", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Book 4 of 10 seats.
	rec = server.do(t, http.MethodPost, "/api/registrations/", userToken, bookingBody(1, 4))
	require.Equal(t, http.StatusCreated, rec.Code)

	var ticket models.Ticket
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ticket))
	assert.Equal(t, int64(1), ticket.RegistrationID)
	assert.Equal(t, "Summer Fest", ticket.EventName)
	assert.Equal(t, 4, ticket.Seats)
	assert.NotEmpty(t, ticket.TicketToken)

	// Book 4 more, leaving 2 remaining.
	rec = server.do(t, http.MethodPost, "/api/registrations/", userToken, bookingBody(1, 4))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Over-demand carries the remaining count in the message.
	rec = server.do(t, http.MethodPost, "/api/registrations/", userToken, bookingBody(1, 5))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only 2 seats remaining.")

	// The QR endpoint renders the stored token as a PNG.
	rec = server.do(t, http.MethodGet, fmt.Sprintf("/api/registrations/%d/qr", ticket.RegistrationID), userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())

	// Another user cannot read the registration; an admin can.
	otherToken := server.token(t, 8, models.RoleUser)
	rec = server.do(t, http.MethodGet, "/api/registrations/1", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = server.do(t, http.MethodGet, "/api/registrations/1", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBookingRequestValidationOverHTTP(t *testing.T) {
	server := setupServer(t)
	userToken := server.token(t, 7, models.RoleUser)

	rec := server.do(t, http.MethodPost, "/api/registrations/", userToken, bookingBody(1, 0))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = server.do(t, http.MethodPost, "/api/registrations/", userToken, bookingBody(1, 6))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := bookingBody(1, 2)
	body["full_name"] = ""
	rec = server.do(t, http.MethodPost, "/api/registrations/", userToken, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = bookingBody(0, 2)
	rec = server.do(t, http.MethodPost, "/api/registrations/", userToken, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
