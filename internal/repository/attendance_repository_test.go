package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bharatvidya/lms-api/internal/models"
)

func TestAttendanceRepositoryUpsertOverwritesStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAttendanceRepository(db)

	query := regexp.QuoteMeta(`INSERT INTO attendance (id, student_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, date, status, created_at, updated_at`)

	day := time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	mock.ExpectQuery(query).
		WithArgs(sqlmock.AnyArg(), "s1", day, models.AttendanceStatusAbsent, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "student_id", "date", "status", "created_at", "updated_at",
		}).AddRow("att-1", "s1", day, string(models.AttendanceStatusAbsent), now, now))

	stored, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		StudentID: "s1",
		Date:      day,
		Status:    models.AttendanceStatusAbsent,
	})
	require.NoError(t, err)
	assert.Equal(t, "att-1", stored.ID)
	assert.Equal(t, models.AttendanceStatusAbsent, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryRangeQuerySkipsEmptyRoster(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAttendanceRepository(db)

	rows, err := repo.ListForStudentsInRange(context.Background(), nil, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryStudentCounts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAttendanceRepository(db)

	query := regexp.QuoteMeta(`SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'present') AS present
FROM attendance WHERE student_id = $1`)

	mock.ExpectQuery(query).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "present"}).AddRow(20, 17))

	total, present, err := repo.StudentCounts(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 20, total)
	assert.Equal(t, 17, present)
	assert.NoError(t, mock.ExpectationsWereMet())
}
