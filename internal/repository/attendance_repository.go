package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bharatvidya/lms-api/internal/models"
)

// AttendanceRepository handles persistence for daily attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert inserts or updates the attendance mark for (student, date). A later
// mark for the same day overwrites the earlier one; the unique key prevents
// duplicate rows.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := `INSERT INTO attendance (id, student_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, date, status, created_at, updated_at`
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, record.ID, record.StudentID, record.Date, record.Status, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// List returns attendance rows matching the provided filter, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, student_id, date, status, created_at, updated_at
FROM attendance WHERE %s ORDER BY date DESC LIMIT %d OFFSET %d`, whereClause, size, offset)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// ListForStudentsInRange returns all attendance rows for the given students
// whose date falls inside [from, to] inclusive. Used by the monthly report.
func (r *AttendanceRepository) ListForStudentsInRange(ctx context.Context, studentIDs []string, from, to time.Time) ([]models.AttendanceRecord, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, student_id, date, status, created_at, updated_at
FROM attendance WHERE student_id IN (?) AND date >= ? AND date <= ?`, studentIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("build attendance range query: %w", err)
	}
	query = r.db.Rebind(query)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance in range: %w", err)
	}
	return rows, nil
}

// StudentCounts aggregates total and present counts for one student across
// all recorded days.
func (r *AttendanceRepository) StudentCounts(ctx context.Context, studentID string) (total int, present int, err error) {
	query := `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'present') AS present
FROM attendance WHERE student_id = $1`
	row := struct {
		Total   int `db:"total"`
		Present int `db:"present"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return 0, 0, fmt.Errorf("student attendance counts: %w", err)
	}
	return row.Total, row.Present, nil
}
