package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faarchive/journaliser/internal/journal"
)

func strptr(s string) *string { return &s }

func liveRecord(id int64) journal.PersistedRecord {
	return journal.PersistedRecord{
		JournalID:   id,
		ArchivedAt:  time.Unix(1700000000, 0).UTC(),
		PayloadJSON: strptr(`{"journal_id":1}`),
	}
}

func deletedRecord(id int64) journal.PersistedRecord {
	return journal.PersistedRecord{
		JournalID:  id,
		IsDeleted:  true,
		ArchivedAt: time.Unix(1700000000, 0).UTC(),
		ErrorKind:  strptr("Journal not found"),
	}
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func TestUpsertInsertsRow(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	rec := liveRecord(10923887)
	mock.ExpectExec("INSERT INTO journals").
		WithArgs(rec.JournalID, rec.IsDeleted, rec.ArchivedAt, rec.ErrorKind, rec.IdentityUsed, rec.PayloadJSON).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Upsert(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertDeletedRow(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	rec := deletedRecord(42)
	mock.ExpectExec("INSERT INTO journals").
		WithArgs(rec.JournalID, rec.IsDeleted, rec.ArchivedAt, rec.ErrorKind, rec.IdentityUsed, rec.PayloadJSON).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Upsert(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRejectsInvariantViolations(t *testing.T) {
	t.Parallel()
	store, _ := newMockStore(t)
	ctx := context.Background()

	// Deleted but no error kind.
	err := store.Upsert(ctx, journal.PersistedRecord{JournalID: 1, IsDeleted: true})
	assert.Error(t, err)

	// Both error kind and payload set.
	err = store.Upsert(ctx, journal.PersistedRecord{
		JournalID:   1,
		IsDeleted:   true,
		ErrorKind:   strptr("x"),
		PayloadJSON: strptr("{}"),
	})
	assert.Error(t, err)

	// Neither error kind nor payload set.
	err = store.Upsert(ctx, journal.PersistedRecord{JournalID: 1})
	assert.Error(t, err)
}

func TestUpdateRequiresExistingRow(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	rec := liveRecord(7)
	mock.ExpectExec("UPDATE journals").
		WithArgs(rec.JournalID, rec.IsDeleted, rec.ArchivedAt, rec.ErrorKind, rec.IdentityUsed, rec.PayloadJSON).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Update(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such row")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListIDsInRange(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"journal_id"}).AddRow(int64(5)).AddRow(int64(6)).AddRow(int64(9))
	mock.ExpectQuery("SELECT journal_id FROM journals WHERE journal_id BETWEEN").
		WithArgs(int64(5), int64(10)).
		WillReturnRows(rows)

	ids, err := store.ListIDsInRange(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 9}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListIDsMissingField(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"journal_id"}).AddRow(int64(3))
	mock.ExpectQuery("SELECT journal_id FROM journals").
		WithArgs("{author,registered_at}").
		WillReturnRows(rows)

	ids, err := store.ListIDsMissingField(context.Background(), "author.registered_at")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAndBounds(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(12)))
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	lo, hi := int64(5), int64(99)
	mock.ExpectQuery("SELECT MIN").
		WillReturnRows(pgxmock.NewRows([]string{"min", "max"}).AddRow(&lo, &hi))
	gotMin, gotMax, ok, err := store.Bounds(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), gotMin)
	assert.Equal(t, int64(99), gotMax)

	mock.ExpectQuery("SELECT MIN").
		WillReturnRows(pgxmock.NewRows([]string{"min", "max"}).AddRow(nil, nil))
	_, _, ok, err = store.Bounds(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "empty store has no bounds")

	require.NoError(t, mock.ExpectationsWereMet())
}
