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

func TestFeeRepositoryMarkPaid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFeeRepository(db)

	query := regexp.QuoteMeta("UPDATE fees SET status = 'paid', paid_date = $1 WHERE id = $2 AND status = 'pending'")
	paidAt := time.Now().UTC()

	mock.ExpectExec(query).
		WithArgs(paidAt, "fee-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	settled, err := repo.MarkPaid(context.Background(), "fee-1", paidAt)
	require.NoError(t, err)
	assert.True(t, settled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryMarkPaidAlreadySettled(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFeeRepository(db)

	query := regexp.QuoteMeta("UPDATE fees SET status = 'paid', paid_date = $1 WHERE id = $2 AND status = 'pending'")
	paidAt := time.Now().UTC()

	mock.ExpectExec(query).
		WithArgs(paidAt, "fee-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	settled, err := repo.MarkPaid(context.Background(), "fee-1", paidAt)
	require.NoError(t, err)
	assert.False(t, settled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryListPendingWithGuardians(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFeeRepository(db)

	query := regexp.QuoteMeta(`SELECT f.id AS fee_id, f.student_id, s.full_name AS student_name, s.parent_email, f.month, f.amount
FROM fees f
JOIN students s ON s.id = f.student_id
WHERE f.status = 'pending'
ORDER BY s.parent_email, f.created_at`)

	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{
		"fee_id", "student_id", "student_name", "parent_email", "month", "amount",
	}).
		AddRow("f1", "s1", "Aarav Sharma", "guardian@example.com", "July 2026", 500.0).
		AddRow("f2", "s2", "Diya Patel", "guardian@example.com", "July 2026", 300.0))

	rows, err := repo.ListPendingWithGuardians(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "guardian@example.com", rows[0].ParentEmail)
	assert.Equal(t, 300.0, rows[1].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryPendingTotal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFeeRepository(db)

	query := regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM fees WHERE status = 'pending' AND ($1 = '' OR student_id = $1)")

	mock.ExpectQuery(query).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(1250.5))

	total, err := repo.PendingTotal(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1250.5, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFeeRepository(db)

	query := regexp.QuoteMeta(`INSERT INTO fees (id, student_id, month, amount, status, due_date, paid_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)

	mock.ExpectExec(query).
		WithArgs(sqlmock.AnyArg(), "s1", "July 2026", 500.0, models.FeeStatusPending, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	fee := &models.Fee{StudentID: "s1", Month: "July 2026", Amount: 500}
	err := repo.Create(context.Background(), fee)
	require.NoError(t, err)
	assert.NotEmpty(t, fee.ID)
	assert.Equal(t, models.FeeStatusPending, fee.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
