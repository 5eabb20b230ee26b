package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bharatvidya/lms-api/internal/models"
)

// SubmissionRepository handles persistence for assignment submissions, the
// join table tying students to assignments.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// InsertPending creates a pending submission for (assignment, student).
// The unique key on the pair makes backfill idempotent: an existing pair is
// skipped and reported as not inserted rather than duplicated.
func (r *SubmissionRepository) InsertPending(ctx context.Context, assignmentID, studentID string) (bool, error) {
	now := time.Now().UTC()
	query := `INSERT INTO assignment_submissions (id, assignment_id, student_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (assignment_id, student_id) DO NOTHING RETURNING id`
	var insertedID string
	err := r.db.QueryRowxContext(ctx, query, uuid.NewString(), assignmentID, studentID, models.SubmissionStatusPending, now, now).Scan(&insertedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("insert pending submission: %w", err)
	}
	return true, nil
}

// FindByID returns the submission with the given id.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	query := `SELECT id, assignment_id, student_id, status, completed_at, created_at, updated_at
FROM assignment_submissions WHERE id = $1`
	var submission models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// SetStatus flips a submission between pending and completed, stamping or
// clearing completed_at accordingly.
func (r *SubmissionRepository) SetStatus(ctx context.Context, id string, status models.SubmissionStatus) (*models.AssignmentSubmission, error) {
	now := time.Now().UTC()
	var completedAt *time.Time
	if status == models.SubmissionStatusCompleted {
		completedAt = &now
	}
	query := `UPDATE assignment_submissions
SET status = $1, completed_at = $2, updated_at = $3
WHERE id = $4
RETURNING id, assignment_id, student_id, status, completed_at, created_at, updated_at`
	var stored models.AssignmentSubmission
	if err := r.db.GetContext(ctx, &stored, query, status, completedAt, now, id); err != nil {
		return nil, fmt.Errorf("set submission status: %w", err)
	}
	return &stored, nil
}

// ListByAssignment returns every submission of one assignment with student
// metadata, ordered by roll number.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	query := `SELECT sub.id, sub.assignment_id, sub.student_id, sub.status, sub.completed_at, sub.created_at, sub.updated_at,
        s.full_name AS student_name, s.roll_no, a.title AS assignment_title, a.due_date
FROM assignment_submissions sub
JOIN students s ON s.id = sub.student_id
JOIN assignments a ON a.id = sub.assignment_id
WHERE sub.assignment_id = $1
ORDER BY s.roll_no ASC`
	var rows []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &rows, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions by assignment: %w", err)
	}
	return rows, nil
}

// ListByStudent returns every submission of one student with assignment
// metadata, newest assignment first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionDetail, error) {
	query := `SELECT sub.id, sub.assignment_id, sub.student_id, sub.status, sub.completed_at, sub.created_at, sub.updated_at,
        s.full_name AS student_name, s.roll_no, a.title AS assignment_title, a.due_date
FROM assignment_submissions sub
JOIN students s ON s.id = sub.student_id
JOIN assignments a ON a.id = sub.assignment_id
WHERE sub.student_id = $1
ORDER BY a.created_at DESC`
	var rows []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list submissions by student: %w", err)
	}
	return rows, nil
}

// StudentCounts returns completed and total submission counts for a student.
func (r *SubmissionRepository) StudentCounts(ctx context.Context, studentID string) (completed int, total int, err error) {
	query := `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE status = 'completed') AS completed
FROM assignment_submissions WHERE student_id = $1`
	row := struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return 0, 0, fmt.Errorf("student submission counts: %w", err)
	}
	return row.Completed, row.Total, nil
}
