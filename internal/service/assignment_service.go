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

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
}

type assignmentStudentRepository interface {
	ListByClassSection(ctx context.Context, class, section string) ([]models.Student, error)
}

type submissionRepository interface {
	InsertPending(ctx context.Context, assignmentID, studentID string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.AssignmentSubmission, error)
	SetStatus(ctx context.Context, id string, status models.SubmissionStatus) (*models.AssignmentSubmission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionDetail, error)
}

// AssignmentService manages assignments, their submission backfill, and
// submission status changes.
type AssignmentService struct {
	assignments assignmentRepository
	students    assignmentStudentRepository
	submissions submissionRepository
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(assignments assignmentRepository, students assignmentStudentRepository, submissions submissionRepository, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{
		assignments: assignments,
		students:    students,
		submissions: submissions,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Create publishes an assignment and backfills a pending submission for every
// student currently enrolled in its class/section. Existing pairs are skipped.
func (s *AssignmentService) Create(ctx context.Context, req models.CreateAssignmentRequest) (*models.CreateAssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !models.ValidClass(req.Class) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class must be between 1 and 12")
	}
	if !models.ValidSection(req.Section) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section must be one of A, B, C, D")
	}

	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due_date must use the YYYY-MM-DD format")
	}

	assignment := &models.Assignment{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Class:       req.Class,
		Section:     req.Section,
		DueDate:     dueDate,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	roster, err := s.students.ListByClassSection(ctx, assignment.Class, assignment.Section)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}

	created := 0
	for _, student := range roster {
		inserted, err := s.submissions.InsertPending(ctx, assignment.ID, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to backfill submissions")
		}
		if inserted {
			created++
		}
	}
	s.metrics.RecordBackfillInserts("assignment", created)

	s.logger.Info("assignment published",
		zap.String("assignment_id", assignment.ID),
		zap.String("class", assignment.Class),
		zap.String("section", assignment.Section),
		zap.Int("submissions_created", created))

	return &models.CreateAssignmentResult{Assignment: assignment, SubmissionsCreated: created}, nil
}

// List returns assignments matching the filter.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return assignments, pagination, nil
}

// SubmissionsByAssignment lists every submission of one assignment ordered by
// roll number.
func (s *AssignmentService) SubmissionsByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	if _, err := s.assignments.FindByID(ctx, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch assignment")
	}

	details, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return details, nil
}

// SubmissionsByStudent lists one student's submissions across assignments.
func (s *AssignmentService) SubmissionsByStudent(ctx context.Context, studentID string) ([]models.SubmissionDetail, error) {
	details, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return details, nil
}

// SetSubmissionStatus transitions a submission between pending and completed.
// Parents may only touch submissions belonging to their linked student; staff
// may touch any.
func (s *AssignmentService) SetSubmissionStatus(ctx context.Context, submissionID string, status models.SubmissionStatus, actor *models.JWTClaims) (*models.AssignmentSubmission, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending or completed")
	}

	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch submission")
	}

	if actor != nil && actor.Role == models.RoleParent {
		if actor.LinkedStudentID == nil || *actor.LinkedStudentID != submission.StudentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "submission belongs to another student")
		}
	}

	updated, err := s.submissions.SetStatus(ctx, submissionID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
	}
	return updated, nil
}
