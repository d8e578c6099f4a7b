package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keuangan/internal/core"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	repo.now = func() time.Time { return time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC) }
	return repo
}

func row(amount int64, cat core.Category, desc string) core.Transaction {
	return core.Transaction{
		Date:        core.NewDate(2024, 6, 15),
		Amount:      core.MoneyFromInt(amount),
		Category:    cat,
		Description: desc,
		OwnerID:     "628123",
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.NoError(t, RunMigrations(path))
}

func TestAppendThenListAll(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, repo.Append(ctx, row(100000, core.CategorySalary, "gaji")))
	require.NoError(t, repo.Append(ctx, row(-12500, core.CategoryFood, "bakso"), row(-3000, core.CategoryTransport, "parkir")))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, tx := range all {
		assert.Equal(t, i+1, tx.ID)
		assert.NotEmpty(t, tx.Key)
		assert.Equal(t, core.NewDate(2024, 6, 15), tx.Date)
		assert.Equal(t, 2024, tx.RecordedAt.Year())
	}
	assert.Equal(t, "bakso", all[1].Description)
	assert.True(t, all[1].Amount.Equal(core.MoneyFromInt(-12500)))
	assert.Equal(t, core.CategoryTransport, all[2].Category)
}

func TestAppendValidationRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	err := repo.Append(ctx, row(-1000, core.CategoryFood, "ok"), row(0, core.CategoryFood, "zero"))
	require.True(t, errors.Is(err, core.ErrInvalidAmount))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteByIDShiftsRows(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.Append(ctx,
		row(-1000, core.CategoryFood, "a"),
		row(-2000, core.CategoryFood, "b"),
		row(-3000, core.CategoryFood, "c"),
	))

	ok, err := repo.DeleteByID(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Description)
	assert.Equal(t, "c", all[1].Description)
	assert.Equal(t, 2, all[1].ID)

	// deleting the last id removes exactly the last row
	ok, err = repo.DeleteByID(ctx, len(all))
	require.NoError(t, err)
	require.True(t, ok)
	rest, _ := repo.ListAll(ctx)
	require.Len(t, rest, 1)
	assert.Equal(t, "a", rest[0].Description)
}

func TestDeleteByIDOutOfBounds(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.Append(ctx, row(-1000, core.CategoryFood, "a")))

	for _, id := range []int{-5, 0, 2, 100} {
		ok, err := repo.DeleteByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, "id %d", id)
	}
	n, _ := repo.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestDeleteByKey(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.Append(ctx, row(-1000, core.CategoryFood, "a"), row(-2000, core.CategoryFood, "b")))
	all, _ := repo.ListAll(ctx)

	ok, err := repo.DeleteByKey(ctx, all[0].Key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeleteByKey(ctx, all[0].Key)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DeleteByKey(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	rest, _ := repo.ListAll(ctx)
	require.Len(t, rest, 1)
	assert.Equal(t, "b", rest[0].Description)
	assert.Equal(t, 1, rest[0].ID)
}

func TestClosedDatabaseReportsStorageFault(t *testing.T) {
	repo := newRepo(t)
	require.NoError(t, repo.Close())
	_, err := repo.ListAll(context.Background())
	assert.True(t, errors.Is(err, core.ErrStorage), "got %v", err)
}
