package db

import (
	"context"
	"database/sql"
	"errors"
	"ms-registration/internal/models"
	"ms-registration/internal/sequence"
	"time"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateEvent allocates the event id and inserts the row in one
// transaction, so a failed insert does not burn an id.
func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		id, err := sequence.Next(ctx, tx, models.SequenceEventID)
		if err != nil {
			return err
		}
		event.ID = id
		_, err = tx.NewInsert().Model(event).Exec(ctx)
		return err
	})
}

func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (d *DB) ListEventsByStatus(ctx context.Context, status string) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("status = ?", status).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// VerifyEvent transitions pending -> verified. Matching zero rows means
// the event is missing or already verified; both surface as NotFound.
func (d *DB) VerifyEvent(ctx context.Context, id int64) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("status = ?", models.EventStatusVerified).
		Set("verified_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", models.EventStatusPending).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}
