package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bharatvidya/lms-api/internal/models"
	appErrors "github.com/bharatvidya/lms-api/pkg/errors"
)

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByRollNo(ctx context.Context, rollNo string) (bool, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type studentAssignmentRepository interface {
	ListByClassSection(ctx context.Context, class, section string) ([]models.Assignment, error)
}

type studentSubmissionRepository interface {
	InsertPending(ctx context.Context, assignmentID, studentID string) (bool, error)
}

// StudentService manages enrollment and the roster backfill that keeps every
// student's submission list consistent with existing assignments.
type StudentService struct {
	students    studentRepository
	assignments studentAssignmentRepository
	submissions studentSubmissionRepository
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(students studentRepository, assignments studentAssignmentRepository, submissions studentSubmissionRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{
		students:    students,
		assignments: assignments,
		submissions: submissions,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Enroll persists a new student and backfills a pending submission for every
// assignment already published to the student's class/section. Pairs that
// already exist are skipped, so re-running the backfill never duplicates.
func (s *StudentService) Enroll(ctx context.Context, req models.EnrollStudentRequest) (*models.EnrollStudentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !models.ValidClass(req.Class) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class must be between 1 and 12")
	}
	if !models.ValidSection(req.Section) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section must be one of A, B, C, D")
	}

	exists, err := s.students.ExistsByRollNo(ctx, req.RollNo)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roll number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "roll number is already taken")
	}

	now := time.Now().UTC()
	student := &models.Student{
		ID:          uuid.NewString(),
		RollNo:      req.RollNo,
		FullName:    req.FullName,
		Class:       req.Class,
		Section:     req.Section,
		ParentEmail: req.ParentEmail,
		FatherName:  req.FatherName,
		MotherName:  req.MotherName,
		Phone:       req.Phone,
		Address:     req.Address,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	assignments, err := s.assignments.ListByClassSection(ctx, student.Class, student.Section)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class assignments")
	}

	created := 0
	for _, assignment := range assignments {
		inserted, err := s.submissions.InsertPending(ctx, assignment.ID, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to backfill submissions")
		}
		if inserted {
			created++
		}
	}
	s.metrics.RecordBackfillInserts("enrollment", created)

	s.logger.Info("student enrolled",
		zap.String("student_id", student.ID),
		zap.String("roll_no", student.RollNo),
		zap.Int("submissions_created", created))

	return &models.EnrollStudentResult{Student: student, SubmissionsCreated: created}, nil
}

// Get returns a single student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}

// List returns students matching the filter, ordered by roll number.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.Class != "" && !models.ValidClass(filter.Class) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "class must be between 1 and 12")
	}
	if filter.Section != "" && !models.ValidSection(filter.Section) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "section must be one of A, B, C, D")
	}

	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return students, pagination, nil
}
