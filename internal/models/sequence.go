package models

import "github.com/uptrace/bun"

// Sequence holds the last issued value for a named counter. IDs are
// application-level integers so they stay small enough to embed in
// ticket tokens.
type Sequence struct {
	bun.BaseModel `bun:"table:sequences"`

	Name  string `bun:"name,pk"`
	Value int64  `bun:"value,notnull"`
}

// Well-known sequence names.
const (
	SequenceEventID        = "event_id"
	SequenceRegistrationID = "registration_id"
	SequenceUserID         = "user_id"
)
