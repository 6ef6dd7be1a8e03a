// Package sequence issues monotonically increasing integer identifiers
// from a durable counter table, so IDs stay consistent across service
// instances. The counter lives in the database rather than in process
// memory because multiple instances may allocate concurrently.
package sequence

import (
	"context"

	"github.com/uptrace/bun"
)

// Next atomically increments and returns the counter for the given
// sequence name, initializing it at 1 on first use. The whole
// read-increment-write is a single upsert statement, so concurrent
// callers never observe the same value twice and no value is skipped.
//
// Next accepts any bun.IDB so callers can run it inside an enclosing
// transaction; in that case an abort also rolls the increment back.
func Next(ctx context.Context, db bun.IDB, name string) (int64, error) {
	var value int64
	// The qualified sequences.value reference works on both Postgres
	// and SQLite.
	err := db.NewRaw(
		"INSERT INTO sequences (name, value) VALUES (?, 1) "+
			"ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1 "+
			"RETURNING value",
		name,
	).Scan(ctx, &value)
	if err != nil {
		return 0, err
	}
	return value, nil
}
