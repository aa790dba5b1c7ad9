package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestRotateSwapsMatchingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	exp := time.Now().UTC().Add(7 * 24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE token_blacklist SET jti=?, expires_at=? WHERE jti=?")).
		WithArgs("jti-new", exp, "jti-old").
		WillReturnResult(sqlmock.NewResult(0, 1))

	matched, err := repo.Rotate(context.Background(), "jti-old", "jti-new", exp)
	require.NoError(t, err)
	assert.True(t, matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRejectsRotatedOrRevokedJTI(t *testing.T) {
	// Zero rows matched: the old jti was already rotated away or
	// revoked by logout. Replaying it must never succeed.
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	exp := time.Now().UTC().Add(7 * 24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE token_blacklist SET jti=?, expires_at=? WHERE jti=?")).
		WithArgs("jti-new", exp, "jti-stale").
		WillReturnResult(sqlmock.NewResult(0, 0))

	matched, err := repo.Rotate(context.Background(), "jti-stale", "jti-new", exp)
	require.NoError(t, err)
	assert.False(t, matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDuplicateJTIConflicts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	exp := time.Now().UTC().Add(time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO token_blacklist (jti, user_id, expires_at) VALUES (?,?,?)")).
		WithArgs("jti-1", "user-1", exp).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'jti-1' for key 'uq_token_blacklist_jti'"))

	err := repo.Record(context.Background(), "jti-1", "user-1", exp)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepRemovesOnlyExpiredRows(t *testing.T) {
	// The cutoff is passed straight through, so a row expired an hour
	// ago is swept while one expiring in an hour survives.
	db, mock := newMockDB(t)
	repo := NewTokenRepo(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM token_blacklist WHERE expires_at < ?")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
