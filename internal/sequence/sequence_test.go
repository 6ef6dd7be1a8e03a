package sequence_test

import (
	"context"
	"database/sql"
	"ms-registration/internal/models"
	"ms-registration/internal/sequence"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	// A single connection keeps every caller on the same in-memory DB.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Sequence)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create sequences table: %v", err)
	}

	return bunDB
}

func TestNextStartsAtOneAndIncrements(t *testing.T) {
	bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		got, err := sequence.Next(ctx, bunDB, models.SequenceEventID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNextIsIndependentPerName(t *testing.T) {
	bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	first, err := sequence.Next(ctx, bunDB, models.SequenceEventID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := sequence.Next(ctx, bunDB, models.SequenceEventID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)

	other, err := sequence.Next(ctx, bunDB, models.SequenceRegistrationID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestNextConcurrentAllocationsHaveNoGapsOrDuplicates(t *testing.T) {
	bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	const n = 50
	results := make([]int64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := sequence.Next(ctx, bunDB, "concurrent")
			assert.NoError(t, err)
			results[i] = value
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i := 0; i < n; i++ {
		assert.Equal(t, int64(i+1), results[i], "expected exactly the set 1..n")
	}
}

func TestNextRollsBackWithEnclosingTransaction(t *testing.T) {
	bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	tx, err := bunDB.BeginTx(ctx, nil)
	require.NoError(t, err)

	value, err := sequence.Next(ctx, tx, models.SequenceRegistrationID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	require.NoError(t, tx.Rollback())

	// The aborted increment must not burn a value.
	value, err = sequence.Next(ctx, bunDB, models.SequenceRegistrationID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
}
