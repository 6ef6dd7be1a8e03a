package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	EventStatusPending  = "pending"
	EventStatusVerified = "verified"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID                int64     `bun:"id,pk" json:"id"`
	Name              string    `bun:"name,notnull" json:"name"`
	EventDate         string    `bun:"event_date,notnull" json:"event_date"`
	Location          string    `bun:"location,notnull" json:"location"`
	TotalSeats        int       `bun:"total_seats,notnull" json:"total_seats"`
	RemainingSeats    int       `bun:"remaining_seats,notnull" json:"remaining_seats"`
	Status            string    `bun:"status,notnull" json:"status"`
	RequestedByUserID int64     `bun:"requested_by_user_id" json:"requested_by_user_id"`
	CreatedAt         time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	VerifiedAt        time.Time `bun:"verified_at,nullzero" json:"verified_at,omitempty"`
}

// EventRequest is the payload for submitting a new event for verification.
type EventRequest struct {
	Name       string `json:"name"`
	EventDate  string `json:"event_date"`
	Location   string `json:"location"`
	TotalSeats int    `json:"total_seats"`
}
