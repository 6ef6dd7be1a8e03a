package events

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"time"
)

type DBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	ListEventsByStatus(ctx context.Context, status string) ([]models.Event, error)
	VerifyEvent(ctx context.Context, id int64) error
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

type EventCache interface {
	GetEvents(ctx context.Context, status string) ([]models.Event, bool)
	SetEvents(ctx context.Context, status string, events []models.Event)
	InvalidateEvents(ctx context.Context)
}

type Topics struct {
	EventRequested string
	EventVerified  string
}

type EventService struct {
	DB     DBLayer
	Kafka  KafkaPublisher
	Cache  EventCache
	Logger *logger.Logger
	Topics Topics
}

func NewEventService(db DBLayer, kafka KafkaPublisher, cache EventCache, log *logger.Logger, topics Topics) *EventService {
	return &EventService{DB: db, Kafka: kafka, Cache: cache, Logger: log, Topics: topics}
}

// Submit stores a new event request in pending status with all seats
// still available. Returns the allocated event id.
func (s *EventService) Submit(ctx context.Context, identity models.Identity, req models.EventRequest) (*models.Event, error) {
	event := models.Event{
		Name:              req.Name,
		EventDate:         req.EventDate,
		Location:          req.Location,
		TotalSeats:        req.TotalSeats,
		RemainingSeats:    req.TotalSeats,
		Status:            models.EventStatusPending,
		RequestedByUserID: identity.UserID,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.DB.CreateEvent(ctx, &event); err != nil {
		return nil, err
	}

	s.Logger.LogDatabase("INSERT", "events", fmt.Sprintf("event %d submitted for verification", event.ID))

	if s.Cache != nil {
		s.Cache.InvalidateEvents(ctx)
	}
	s.publish(s.Topics.EventRequested, &event)

	return &event, nil
}

// List returns events with the given status, served from the cache when
// possible.
func (s *EventService) List(ctx context.Context, status string) ([]models.Event, error) {
	if s.Cache != nil {
		if events, ok := s.Cache.GetEvents(ctx, status); ok {
			return events, nil
		}
	}

	events, err := s.DB.ListEventsByStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.SetEvents(ctx, status, events)
	}
	return events, nil
}

// ListPending is the admin view of unverified event requests.
func (s *EventService) ListPending(ctx context.Context, identity models.Identity) ([]models.Event, error) {
	if !identity.IsAdmin() {
		return nil, models.ErrForbidden
	}
	return s.List(ctx, models.EventStatusPending)
}

// Verify promotes a pending event so it becomes bookable. Re-verifying
// a verified event is rejected as NotFound rather than silently accepted.
func (s *EventService) Verify(ctx context.Context, identity models.Identity, eventID int64) error {
	if !identity.IsAdmin() {
		return models.ErrForbidden
	}

	if err := s.DB.VerifyEvent(ctx, eventID); err != nil {
		return err
	}

	s.Logger.LogDatabase("UPDATE", "events", fmt.Sprintf("event %d verified", eventID))

	if s.Cache != nil {
		s.Cache.InvalidateEvents(ctx)
	}

	if event, err := s.DB.GetEventByID(ctx, eventID); err == nil {
		s.publish(s.Topics.EventVerified, event)
	}

	return nil
}

func (s *EventService) publish(topic string, event *models.Event) {
	if s.Kafka == nil {
		return
	}
	value, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.Kafka.Publish(topic, fmt.Sprintf("%d", event.ID), value); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("failed to publish event %d to %s: %v", event.ID, topic, err))
	}
}
