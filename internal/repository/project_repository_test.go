package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	deactivateAllSQL = "UPDATE project_versions SET active=0 WHERE project_id=?"
	insertVersionSQL = "INSERT INTO project_versions (project_id, version, active) VALUES (?,?,1)"
	deleteVersionSQL = "DELETE FROM project_versions WHERE id=? AND project_id=?"
	promoteLatestSQL = "UPDATE project_versions SET active=1 WHERE project_id=? ORDER BY id DESC LIMIT 1"
)

func TestSetActiveVersionDeactivatesThenActivates(t *testing.T) {
	// Bulk deactivate plus point activate inside one committed
	// transaction, leaving exactly one active row.
	db, mock := newMockDB(t)
	repo := NewProjectRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deactivateAllSQL)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE project_versions SET active=1 WHERE id=? AND project_id=?")).
		WithArgs(7, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetActiveVersion(context.Background(), 1, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveVersionUnknownTargetRollsBack(t *testing.T) {
	// If the point update matches nothing the bulk deactivate must not
	// survive, or the project would be left with zero active versions.
	db, mock := newMockDB(t)
	repo := NewProjectRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deactivateAllSQL)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE project_versions SET active=1 WHERE id=? AND project_id=?")).
		WithArgs(99, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetActiveVersion(context.Background(), 1, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddVersionDeactivatesOldRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProjectRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deactivateAllSQL)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(insertVersionSQL)).
		WithArgs(1, "v3").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	v, err := repo.AddVersion(context.Background(), 1, "v3")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), v.ID)
	assert.Equal(t, "v3", v.Version)
	assert.True(t, v.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddVersionDuplicateLabelConflicts(t *testing.T) {
	// Two concurrent updates derive the same next label; the unique
	// (project_id, version) key makes the loser fail cleanly.
	db, mock := newMockDB(t)
	repo := NewProjectRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deactivateAllSQL)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(insertVersionSQL)).
		WithArgs(1, "v3").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '1-v3' for key 'uq_project_versions_label'"))
	mock.ExpectRollback()

	_, err := repo.AddVersion(context.Background(), 1, "v3")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteActiveVersionPromotesLatestRemaining(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProjectRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteVersionSQL)).
		WithArgs(7, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(promoteLatestSQL)).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteVersion(context.Background(), 1, 7, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInactiveVersionSkipsPromotion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProjectRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteVersionSQL)).
		WithArgs(5, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteVersion(context.Background(), 1, 5, false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteVersionUnknownRowRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProjectRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteVersionSQL)).
		WithArgs(42, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteVersion(context.Background(), 1, 42, true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
