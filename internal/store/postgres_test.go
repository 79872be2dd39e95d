package store_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formloom/formloom/internal/store"
)

// The postgres path rewrites ? placeholders to $1..$n and swaps
// INSERT OR IGNORE for ON CONFLICT DO NOTHING. sqlmock pins the exact
// SQL the driver receives.
func TestPostgresPlaceholderRebinding(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	s := store.NewWithDB(db, "postgres")

	mock.ExpectQuery(`SELECT value FROM settings WHERE key = $1`).
		WithArgs("auth_token").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("tok"))

	val, err := s.GetSetting(context.Background(), "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", val)

	mock.ExpectExec(`INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT(key) DO UPDATE SET value = excluded.value`).
		WithArgs("auth_token", "tok2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SetSetting(context.Background(), "auth_token", "tok2"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordEventConflictClause(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	s := store.NewWithDB(db, "postgres")

	mock.ExpectExec(`INSERT INTO events (form_id, variant_id, event_type, visitor_id, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`).
		WithArgs("f1", "va", "view", "vis1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	inserted, err := s.RecordEvent(context.Background(), "f1", "va", store.EventView, "vis1")
	require.NoError(t, err)
	assert.True(t, inserted)

	// The conflict clause reports zero affected rows on a repeat.
	mock.ExpectExec(`INSERT INTO events (form_id, variant_id, event_type, visitor_id, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`).
		WithArgs("f1", "va", "view", "vis1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err = s.RecordEvent(context.Background(), "f1", "va", store.EventView, "vis1")
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.NoError(t, mock.ExpectationsWereMet())
}
