package db

import (
	"context"
	"database/sql"
	"errors"
	"ms-registration/internal/models"
	"ms-registration/internal/sequence"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateUser allocates the user id and inserts the row in one
// transaction. A duplicate email surfaces as ErrEmailTaken.
func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		id, err := sequence.Next(ctx, tx, models.SequenceUserID)
		if err != nil {
			return err
		}
		user.ID = id
		_, err = tx.NewInsert().Model(user).Exec(ctx)
		return err
	})
	if err != nil && isUniqueViolation(err) {
		return models.ErrEmailTaken
	}
	return err
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
