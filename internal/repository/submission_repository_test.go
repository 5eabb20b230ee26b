package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bharatvidya/lms-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestSubmissionRepositoryInsertPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	query := regexp.QuoteMeta(`INSERT INTO assignment_submissions (id, assignment_id, student_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (assignment_id, student_id) DO NOTHING RETURNING id`)

	mock.ExpectQuery(query).
		WithArgs(sqlmock.AnyArg(), "a1", "s1", models.SubmissionStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sub-1"))

	inserted, err := repo.InsertPending(context.Background(), "a1", "s1")
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryInsertPendingConflictIsNotAnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	query := regexp.QuoteMeta(`INSERT INTO assignment_submissions (id, assignment_id, student_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (assignment_id, student_id) DO NOTHING RETURNING id`)

	mock.ExpectQuery(query).
		WithArgs(sqlmock.AnyArg(), "a1", "s1", models.SubmissionStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	inserted, err := repo.InsertPending(context.Background(), "a1", "s1")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositorySetStatusCompleted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	query := regexp.QuoteMeta(`UPDATE assignment_submissions
SET status = $1, completed_at = $2, updated_at = $3
WHERE id = $4
RETURNING id, assignment_id, student_id, status, completed_at, created_at, updated_at`)

	now := time.Now().UTC()
	mock.ExpectQuery(query).
		WithArgs(models.SubmissionStatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), "sub-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "assignment_id", "student_id", "status", "completed_at", "created_at", "updated_at",
		}).AddRow("sub-1", "a1", "s1", string(models.SubmissionStatusCompleted), now, now, now))

	stored, err := repo.SetStatus(context.Background(), "sub-1", models.SubmissionStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryStudentCounts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	query := regexp.QuoteMeta(`SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'completed') AS completed
FROM assignment_submissions WHERE student_id = $1`)

	mock.ExpectQuery(query).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "completed"}).AddRow(8, 5))

	completed, total, err := repo.StudentCounts(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, completed)
	assert.Equal(t, 8, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
