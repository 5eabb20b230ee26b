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

// StudentRepository handles persistence for the student directory.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = "id, roll_no, full_name, class, section, parent_email, father_name, mother_name, phone, address, created_at, updated_at"

// Create inserts a new student row.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = now
	student.UpdatedAt = now
	query := `INSERT INTO students (id, roll_no, full_name, class, section, parent_email, father_name, mother_name, phone, address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query,
		student.ID, student.RollNo, student.FullName, student.Class, student.Section,
		student.ParentEmail, student.FatherName, student.MotherName, student.Phone, student.Address,
		student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// FindByID returns the student with the given id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByRollNo reports whether a roll number is already taken.
func (r *StudentRepository) ExistsByRollNo(ctx context.Context, rollNo string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM students WHERE roll_no = $1)"
	if err := r.db.GetContext(ctx, &exists, query, rollNo); err != nil {
		return false, fmt.Errorf("check roll number: %w", err)
	}
	return exists, nil
}

// List returns students matching the filter, ordered by roll number
// ascending. Roll numbers are zero-padded strings, so lexicographic order
// is roster order.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR roll_no ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Class != "" {
		where = append(where, fmt.Sprintf("class = $%d", len(args)+1))
		args = append(args, filter.Class)
	}
	if filter.Section != "" {
		where = append(where, fmt.Sprintf("section = $%d", len(args)+1))
		args = append(args, filter.Section)
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

	query := fmt.Sprintf("SELECT %s FROM students WHERE %s ORDER BY roll_no ASC LIMIT %d OFFSET %d", studentColumns, whereClause, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListByClassSection returns every student of one class/section, ordered by
// roll number ascending. This is the roster used by backfill and reporting.
func (r *StudentRepository) ListByClassSection(ctx context.Context, class, section string) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE class = $1 AND section = $2 ORDER BY roll_no ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, class, section); err != nil {
		return nil, fmt.Errorf("list students by class/section: %w", err)
	}
	return students, nil
}

// Count returns the total number of students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// DistinctGuardianEmails returns every non-empty parent email exactly once,
// the recipient set of the broadcast operation.
func (r *StudentRepository) DistinctGuardianEmails(ctx context.Context) ([]string, error) {
	query := "SELECT DISTINCT parent_email FROM students WHERE parent_email <> '' ORDER BY parent_email"
	var emails []string
	if err := r.db.SelectContext(ctx, &emails, query); err != nil {
		return nil, fmt.Errorf("list guardian emails: %w", err)
	}
	return emails, nil
}
