package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bharatvidya/lms-api/internal/models"
)

// FeeRepository handles persistence for fee records.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs the repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

const feeColumns = "id, student_id, month, amount, status, due_date, paid_date, created_at"

// Create inserts a new fee row in pending state.
func (r *FeeRepository) Create(ctx context.Context, fee *models.Fee) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	if fee.Status == "" {
		fee.Status = models.FeeStatusPending
	}
	fee.CreatedAt = time.Now().UTC()
	query := `INSERT INTO fees (id, student_id, month, amount, status, due_date, paid_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		fee.ID, fee.StudentID, fee.Month, fee.Amount, fee.Status, fee.DueDate, fee.PaidDate, fee.CreatedAt); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}
	return nil
}

// FindByID returns the fee with the given id.
func (r *FeeRepository) FindByID(ctx context.Context, id string) (*models.Fee, error) {
	query := fmt.Sprintf("SELECT %s FROM fees WHERE id = $1", feeColumns)
	var fee models.Fee
	if err := r.db.GetContext(ctx, &fee, query, id); err != nil {
		return nil, err
	}
	return &fee, nil
}

// ListByStudent returns a student's fee records, newest month first.
func (r *FeeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Fee, error) {
	query := fmt.Sprintf("SELECT %s FROM fees WHERE student_id = $1 ORDER BY created_at DESC", feeColumns)
	var fees []models.Fee
	if err := r.db.SelectContext(ctx, &fees, query, studentID); err != nil {
		return nil, fmt.Errorf("list fees by student: %w", err)
	}
	return fees, nil
}

// ListPendingWithGuardians returns every pending fee joined to its student's
// name and guardian email, the working set of the reminder batcher.
func (r *FeeRepository) ListPendingWithGuardians(ctx context.Context) ([]models.PendingFeeRow, error) {
	query := `SELECT f.id AS fee_id, f.student_id, s.full_name AS student_name, s.parent_email, f.month, f.amount
FROM fees f
JOIN students s ON s.id = f.student_id
WHERE f.status = 'pending'
ORDER BY s.parent_email, f.created_at`
	var rows []models.PendingFeeRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list pending fees: %w", err)
	}
	return rows, nil
}

// MarkPaid applies the one-way pending→paid transition. It returns false
// when the fee was not in pending state, so callers can surface a conflict
// instead of silently re-paying.
func (r *FeeRepository) MarkPaid(ctx context.Context, id string, paidDate time.Time) (bool, error) {
	query := "UPDATE fees SET status = 'paid', paid_date = $1 WHERE id = $2 AND status = 'pending'"
	res, err := r.db.ExecContext(ctx, query, paidDate, id)
	if err != nil {
		return false, fmt.Errorf("mark fee paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark fee paid: %w", err)
	}
	return affected == 1, nil
}

// PendingTotal sums pending fee amounts, school-wide when studentID is empty
// or scoped to one student otherwise.
func (r *FeeRepository) PendingTotal(ctx context.Context, studentID string) (float64, error) {
	query := "SELECT COALESCE(SUM(amount), 0) FROM fees WHERE status = 'pending' AND ($1 = '' OR student_id = $1)"
	var total float64
	if err := r.db.GetContext(ctx, &total, query, studentID); err != nil {
		return 0, fmt.Errorf("pending fee total: %w", err)
	}
	return total, nil
}
