package booking_test

import (
	"context"
	"errors"
	"ms-registration/internal/booking"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock implementations
type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) Book(ctx context.Context, reg *models.Registration) (string, error) {
	args := m.Called(ctx, reg)
	return args.String(0), args.Error(1)
}

func (m *MockDBLayer) GetRegistrationByID(ctx context.Context, id int64) (*models.Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Registration), args.Error(1)
}

func (m *MockDBLayer) GetRegistrationsByUser(ctx context.Context, userID int64) ([]models.Registration, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Registration), args.Error(1)
}

type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) Publish(topic string, key string, value []byte) error {
	args := m.Called(topic, key, value)
	return args.Error(0)
}

type MockEventCache struct {
	mock.Mock
}

func (m *MockEventCache) InvalidateEvents(ctx context.Context) {
	m.Called(ctx)
}

func newService(db *MockDBLayer, kafka *MockKafkaProducer, cache *MockEventCache) *booking.BookingService {
	return booking.NewBookingService(db, kafka, cache, logger.NewLogger(), "registry.registration.created")
}

var identity = models.Identity{UserID: 7, Role: models.RoleUser}

func bookingRequest() models.BookingRequest {
	return models.BookingRequest{
		EventID:     1,
		FullName:    "Alice Wonderland",
		Email:       "alice@example.com",
		SeatsBooked: 4,
	}
}

func TestBookReturnsTicketAndPublishes(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaProducer)
	mockCache := new(MockEventCache)
	service := newService(mockDB, mockKafka, mockCache)

	mockDB.On("Book", mock.Anything, mock.AnythingOfType("*models.Registration")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Registration).ID = 42
		}).
		Return("Summer Fest", nil).Once()
	mockCache.On("InvalidateEvents", mock.Anything).Once()
	mockKafka.On("Publish", "registry.registration.created", "42", mock.Anything).Return(nil).Once()

	ticket, err := service.Book(context.Background(), identity, bookingRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(42), ticket.RegistrationID)
	assert.Equal(t, "Summer Fest", ticket.EventName)
	assert.Equal(t, "Alice Wonderland", ticket.RegisteredName)
	assert.Equal(t, 4, ticket.Seats)
	assert.NotEmpty(t, ticket.TicketToken)

	mockDB.AssertExpectations(t)
	mockKafka.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestBookTicketTokensAreUnique(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaProducer)
	mockCache := new(MockEventCache)
	service := newService(mockDB, mockKafka, mockCache)

	var tokens []string
	mockDB.On("Book", mock.Anything, mock.AnythingOfType("*models.Registration")).
		Run(func(args mock.Arguments) {
			tokens = append(tokens, args.Get(1).(*models.Registration).TicketToken)
		}).
		Return("Summer Fest", nil)
	mockCache.On("InvalidateEvents", mock.Anything)
	mockKafka.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := service.Book(context.Background(), identity, bookingRequest())
	require.NoError(t, err)
	_, err = service.Book(context.Background(), identity, bookingRequest())
	require.NoError(t, err)

	require.Len(t, tokens, 2)
	assert.NotEqual(t, tokens[0], tokens[1])
}

func TestBookDomainErrorsAreNotRetried(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaProducer)
	mockCache := new(MockEventCache)
	service := newService(mockDB, mockKafka, mockCache)

	mockDB.On("Book", mock.Anything, mock.Anything).
		Return("", &models.CapacityError{Remaining: 2}).Once()

	_, err := service.Book(context.Background(), identity, bookingRequest())

	var capErr *models.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, capErr.Remaining)

	mockDB.AssertNumberOfCalls(t, "Book", 1)
	mockKafka.AssertNotCalled(t, "Publish")
	mockCache.AssertNotCalled(t, "InvalidateEvents")
}

func TestBookNotFoundPassesThrough(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newService(mockDB, new(MockKafkaProducer), new(MockEventCache))

	mockDB.On("Book", mock.Anything, mock.Anything).Return("", models.ErrNotFound).Once()

	_, err := service.Book(context.Background(), identity, bookingRequest())
	assert.ErrorIs(t, err, models.ErrNotFound)
	mockDB.AssertNumberOfCalls(t, "Book", 1)
}

func TestBookRetriesSerializationFailures(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockKafka := new(MockKafkaProducer)
	mockCache := new(MockEventCache)
	service := newService(mockDB, mockKafka, mockCache)

	busy := errors.New("database is locked (5) (SQLITE_BUSY)")
	mockDB.On("Book", mock.Anything, mock.Anything).Return("", busy).Twice()
	mockDB.On("Book", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Registration).ID = 9
		}).
		Return("Summer Fest", nil).Once()
	mockCache.On("InvalidateEvents", mock.Anything).Once()
	mockKafka.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	ticket, err := service.Book(context.Background(), identity, bookingRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(9), ticket.RegistrationID)
	mockDB.AssertNumberOfCalls(t, "Book", 3)
}

func TestBookSurfacesConflictAfterExhaustedRetries(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newService(mockDB, new(MockKafkaProducer), new(MockEventCache))

	busy := errors.New("database is locked (5) (SQLITE_BUSY)")
	mockDB.On("Book", mock.Anything, mock.Anything).Return("", busy)

	_, err := service.Book(context.Background(), identity, bookingRequest())
	assert.ErrorIs(t, err, models.ErrConflict)
	mockDB.AssertNumberOfCalls(t, "Book", 3)
}

func TestGetRegistrationEnforcesOwnership(t *testing.T) {
	mockDB := new(MockDBLayer)
	service := newService(mockDB, new(MockKafkaProducer), new(MockEventCache))

	reg := &models.Registration{ID: 1, UserID: 99}
	mockDB.On("GetRegistrationByID", mock.Anything, int64(1)).Return(reg, nil)

	_, err := service.GetRegistration(context.Background(), identity, 1)
	assert.ErrorIs(t, err, models.ErrForbidden)

	admin := models.Identity{UserID: 2, Role: models.RoleAdmin}
	got, err := service.GetRegistration(context.Background(), admin, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}
