package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS kv_entries")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	db, err := New(context.Background(), mock)
	require.NoError(t, err)
	return db, mock
}

func TestNew_CreateTableError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE")).WillReturnError(errors.New("permission denied"))

	_, err = New(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_Get(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(getSQL)).
		WithArgs("study_buddy_results").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`[]`)))

	data, ok, err := db.Get(ctx, "study_buddy_results")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_GetMissing(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(getSQL)).
		WithArgs("study_buddy_settings").
		WillReturnError(pgx.ErrNoRows)

	data, ok, err := db.Get(context.Background(), "study_buddy_settings")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_SetAndDelete(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_entries")).
		WithArgs("study_buddy_results", []byte(`[{"id":"a"}]`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(deleteSQL)).
		WithArgs("study_buddy_results").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, db.Set(ctx, "study_buddy_results", []byte(`[{"id":"a"}]`)))
	require.NoError(t, db.Delete(ctx, "study_buddy_results"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_SetError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_entries")).
		WithArgs("k", []byte(`{}`)).
		WillReturnError(errors.New("connection reset"))

	err := db.Set(context.Background(), "k", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set k")
	require.NoError(t, mock.ExpectationsWereMet())
}
