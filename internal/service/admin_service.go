package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bharatvidya/lms-api/internal/models"
	appErrors "github.com/bharatvidya/lms-api/pkg/errors"
	"github.com/bharatvidya/lms-api/pkg/mailer"
)

type adminUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	LinkStudent(ctx context.Context, id string, studentID *string) error
}

type adminStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	DistinctGuardianEmails(ctx context.Context) ([]string, error)
}

type messageLogRepository interface {
	List(ctx context.Context, filter models.MessageLogFilter) ([]models.MessageLog, int, error)
}

// AdminService covers user administration, guardian-student linking,
// broadcasts and the outbound message audit trail.
type AdminService struct {
	users     adminUserRepository
	students  adminStudentRepository
	logs      messageLogRepository
	notifier  *Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(users adminUserRepository, students adminStudentRepository, logs messageLogRepository, notifier *Notifier, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AdminService{
		users:     users,
		students:  students,
		logs:      logs,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// ListUsers returns users matching the filter.
func (s *AdminService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return users, pagination, nil
}

// UpdateRole changes a user's role.
func (s *AdminService) UpdateRole(ctx context.Context, userID string, req models.UpdateRoleRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	role := models.UserRole(req.Role)
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "role must be admin, teacher or parent")
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	s.logger.Info("user role updated", zap.String("user_id", userID), zap.String("role", string(role)))
	return user, nil
}

// LinkStudent attaches a guardian account to a student record, scoping what
// that guardian can see. Only parent accounts can be linked; a nil student id
// clears the link.
func (s *AdminService) LinkStudent(ctx context.Context, userID string, req models.LinkStudentRequest) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.Role != models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only parent accounts can be linked to a student")
	}

	if req.StudentID != nil {
		if _, err := s.students.FindByID(ctx, *req.StudentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
		}
	}

	if err := s.users.LinkStudent(ctx, userID, req.StudentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link student")
	}

	updated, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	return updated, nil
}

// Broadcast sends an announcement to every distinct guardian email on file.
// One failed delivery does not stop the rest; every attempt is logged.
func (s *AdminService) Broadcast(ctx context.Context, req models.BroadcastRequest) (*models.BroadcastResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid broadcast payload")
	}

	emails, err := s.students.DistinctGuardianEmails(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian emails")
	}

	result := &models.BroadcastResult{Recipients: len(emails)}
	for _, email := range emails {
		msg := mailer.Message{
			To:      email,
			Subject: req.Subject,
			HTML:    req.Message,
		}
		if err := s.notifier.Submit(ctx, msg, models.MessageTypeBroadcast); err != nil {
			result.Failed++
			continue
		}
		result.Sent++
	}

	s.logger.Info("broadcast dispatched",
		zap.Int("recipients", result.Recipients),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))

	return result, nil
}

// MessageLogs returns the outbound message audit trail.
func (s *AdminService) MessageLogs(ctx context.Context, filter models.MessageLogFilter) ([]models.MessageLog, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 50
	}

	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list message logs")
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return logs, pagination, nil
}
