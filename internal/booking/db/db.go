package db

import (
	"context"
	"database/sql"
	"errors"
	"ms-registration/internal/models"
	"ms-registration/internal/sequence"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// Book runs the whole seat-reservation transaction: read the verified
// event, check and decrement remaining seats, allocate the registration
// id, and insert the registration row. All of it commits or none of it
// does. Returns the event name for the ticket.
//
// The decrement is guarded by a remaining_seats >= ? predicate so two
// transactions can never both commit a decrement computed from the same
// snapshot, independent of the isolation level the backend actually
// provides. The registration id is allocated inside the transaction, so
// an abort rolls the counter back and the sequence stays gap-free.
func (d *DB) Book(ctx context.Context, reg *models.Registration) (string, error) {
	var eventName string

	err := d.Bun.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable},
		func(ctx context.Context, tx bun.Tx) error {
			var event models.Event
			err := tx.NewSelect().
				Model(&event).
				Where("id = ?", reg.EventID).
				Where("status = ?", models.EventStatusVerified).
				Limit(1).
				Scan(ctx)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return models.ErrNotFound
				}
				return err
			}

			if event.RemainingSeats < reg.SeatsBooked {
				return &models.CapacityError{Remaining: event.RemainingSeats}
			}

			res, err := tx.NewUpdate().
				Model((*models.Event)(nil)).
				Set("remaining_seats = remaining_seats - ?", reg.SeatsBooked).
				Where("id = ?", reg.EventID).
				Where("status = ?", models.EventStatusVerified).
				Where("remaining_seats >= ?", reg.SeatsBooked).
				Exec(ctx)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				// A concurrent booking took the seats between our read
				// and the guarded update. Re-read for the error message.
				var remaining int
				err := tx.NewSelect().
					Model((*models.Event)(nil)).
					Column("remaining_seats").
					Where("id = ?", reg.EventID).
					Scan(ctx, &remaining)
				if err != nil {
					return err
				}
				return &models.CapacityError{Remaining: remaining}
			}

			id, err := sequence.Next(ctx, tx, models.SequenceRegistrationID)
			if err != nil {
				return err
			}
			reg.ID = id

			if _, err := tx.NewInsert().Model(reg).Exec(ctx); err != nil {
				return err
			}

			eventName = event.Name
			return nil
		})
	if err != nil {
		return "", err
	}
	return eventName, nil
}

func (d *DB) GetRegistrationByID(ctx context.Context, id int64) (*models.Registration, error) {
	var reg models.Registration
	err := d.Bun.NewSelect().
		Model(&reg).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (d *DB) GetRegistrationsByUser(ctx context.Context, userID int64) ([]models.Registration, error) {
	var regs []models.Registration
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return regs, nil
}
