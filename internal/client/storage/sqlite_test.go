package storage

import (
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

func TestSQLiteBackend_RoundTrip(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	ls := NewLocalStore(b, "alice", nil)
	snap := models.DefaultPreferences()
	snap.ActiveTabs = []string{"appliances"}
	require.NoError(t, ls.Write(snap))
	snap.Theme = "dark"
	require.NoError(t, ls.Write(snap))

	assert.Equal(t, snap, ls.Read())
}

func TestSQLiteBackend_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv WHERE key = ?`)).
		WithArgs("k").
		WillReturnError(errors.New("locked"))

	_, err = NewSQLiteBackend(db).Get("k")
	assert.ErrorContains(t, err, "select")
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBackend_PutError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO kv (key, value, updated_at)`)).
		WithArgs("k", []byte("v"), sqlmock.AnyArg()).
		WillReturnError(errors.New("readonly"))

	err = NewSQLiteBackend(db).Put("k", []byte("v"))
	assert.ErrorContains(t, err, "upsert")
	assert.NoError(t, mock.ExpectationsWereMet())
}
