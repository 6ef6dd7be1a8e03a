package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Seat limits enforced at the request boundary.
const (
	MinSeatsPerBooking = 1
	MaxSeatsPerBooking = 5
)

type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	ID              int64     `bun:"id,pk" json:"registration_id"`
	EventID         int64     `bun:"event_id,notnull" json:"event_id"`
	UserID          int64     `bun:"user_id,notnull" json:"user_id"`
	RegisteredName  string    `bun:"registered_name,notnull" json:"registered_name"`
	RegisteredEmail string    `bun:"registered_email,notnull" json:"registered_email"`
	SeatsBooked     int       `bun:"seats_booked,notnull" json:"seats_booked"`
	TicketToken     string    `bun:"ticket_token,notnull" json:"ticket_token"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// BookingRequest is the validated payload handed to the booking service.
type BookingRequest struct {
	EventID     int64  `json:"event_id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	SeatsBooked int    `json:"seats_booked"`
}

// Ticket is what a successful booking returns to the caller.
type Ticket struct {
	RegistrationID int64  `json:"registration_id"`
	EventName      string `json:"event_name"`
	RegisteredName string `json:"registered_name"`
	Seats          int    `json:"seats"`
	TicketToken    string `json:"ticket_token"`
}
