package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// maxConflictRetries bounds how often a booking is re-run after the
// storage layer aborts it with a serialization failure. Domain errors
// are never retried.
const maxConflictRetries = 3

type DBLayer interface {
	Book(ctx context.Context, reg *models.Registration) (string, error)
	GetRegistrationByID(ctx context.Context, id int64) (*models.Registration, error)
	GetRegistrationsByUser(ctx context.Context, userID int64) ([]models.Registration, error)
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

type EventCache interface {
	InvalidateEvents(ctx context.Context)
}

type BookingService struct {
	DB     DBLayer
	Kafka  KafkaPublisher
	Cache  EventCache
	Logger *logger.Logger
	Topic  string
}

func NewBookingService(db DBLayer, kafka KafkaPublisher, cache EventCache, log *logger.Logger, topic string) *BookingService {
	return &BookingService{DB: db, Kafka: kafka, Cache: cache, Logger: log, Topic: topic}
}

// Book reserves seats for the identified user. The request shape is
// validated by the handler; this layer owns the transaction, the retry
// policy, and the ticket token.
func (s *BookingService) Book(ctx context.Context, identity models.Identity, req models.BookingRequest) (*models.Ticket, error) {
	reg := models.Registration{
		EventID:         req.EventID,
		UserID:          identity.UserID,
		RegisteredName:  req.FullName,
		RegisteredEmail: req.Email,
		SeatsBooked:     req.SeatsBooked,
		TicketToken:     newTicketToken(req),
		CreatedAt:       time.Now().UTC(),
	}

	var eventName string
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		eventName, err = s.DB.Book(ctx, &reg)
		if err == nil {
			break
		}
		if !isSerializationFailure(err) {
			return nil, err
		}
		s.Logger.LogBooking("RETRY", req.EventID, req.SeatsBooked,
			fmt.Sprintf("transaction aborted on attempt %d: %v", attempt, err))
		err = models.ErrConflict
	}
	if err != nil {
		return nil, err
	}

	s.Logger.LogBooking("COMMIT", req.EventID, req.SeatsBooked,
		fmt.Sprintf("registration %d created", reg.ID))

	if s.Cache != nil {
		s.Cache.InvalidateEvents(ctx)
	}

	if s.Kafka != nil {
		if value, err := json.Marshal(reg); err == nil {
			if err := s.Kafka.Publish(s.Topic, fmt.Sprintf("%d", reg.ID), value); err != nil {
				s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish registration %d: %v", reg.ID, err))
			}
		}
	}

	return &models.Ticket{
		RegistrationID: reg.ID,
		EventName:      eventName,
		RegisteredName: reg.RegisteredName,
		Seats:          reg.SeatsBooked,
		TicketToken:    reg.TicketToken,
	}, nil
}

// GetRegistration returns a registration. Regular users may only fetch
// their own; admins may fetch any.
func (s *BookingService) GetRegistration(ctx context.Context, identity models.Identity, id int64) (*models.Registration, error) {
	reg, err := s.DB.GetRegistrationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.UserID != identity.UserID && !identity.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return reg, nil
}

func (s *BookingService) ListRegistrations(ctx context.Context, identity models.Identity) ([]models.Registration, error) {
	return s.DB.GetRegistrationsByUser(ctx, identity.UserID)
}

// newTicketToken builds the opaque token embedded in the ticket. The
// random nonce makes it unique; it is display data, not a storage key.
func newTicketToken(req models.BookingRequest) string {
	return fmt.Sprintf("%s|%s|%d|%d|%s",
		req.FullName, req.Email, req.EventID, req.SeatsBooked, uuid.NewString())
}

// isSerializationFailure reports whether the error is a transient
// isolation abort worth retrying: Postgres serialization_failure or
// deadlock_detected, or SQLite's busy signal.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
