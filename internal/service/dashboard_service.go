package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bharatvidya/lms-api/internal/models"
	appErrors "github.com/bharatvidya/lms-api/pkg/errors"
)

type dashboardStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Count(ctx context.Context) (int, error)
}

type dashboardUserRepository interface {
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
}

type dashboardAssignmentRepository interface {
	Count(ctx context.Context) (int, error)
}

type dashboardFeeRepository interface {
	PendingTotal(ctx context.Context, studentID string) (float64, error)
}

type dashboardAttendanceRepository interface {
	StudentCounts(ctx context.Context, studentID string) (total int, present int, err error)
}

type dashboardSubmissionRepository interface {
	StudentCounts(ctx context.Context, studentID string) (completed int, total int, err error)
}

const (
	staffDashboardKey       = "dashboard:staff"
	parentDashboardKeyFmt   = "dashboard:parent:%s"
	dashboardInvalidatePat  = "dashboard:*"
	defaultDashboardCacheTT = 5 * time.Minute
)

// DashboardService aggregates headline figures for the staff and parent
// landing pages, with a short-lived cache in front.
type DashboardService struct {
	students    dashboardStudentRepository
	users       dashboardUserRepository
	assignments dashboardAssignmentRepository
	fees        dashboardFeeRepository
	attendance  dashboardAttendanceRepository
	submissions dashboardSubmissionRepository
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(
	students dashboardStudentRepository,
	users dashboardUserRepository,
	assignments dashboardAssignmentRepository,
	fees dashboardFeeRepository,
	attendance dashboardAttendanceRepository,
	submissions dashboardSubmissionRepository,
	cache *CacheService,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultDashboardCacheTT
	}
	return &DashboardService{
		students:    students,
		users:       users,
		assignments: assignments,
		fees:        fees,
		attendance:  attendance,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Staff returns school-wide headline counts for admins and teachers.
func (s *DashboardService) Staff(ctx context.Context) (*models.StaffDashboard, error) {
	var cached models.StaffDashboard
	if hit, _ := s.cache.Get(ctx, staffDashboardKey, &cached); hit {
		return &cached, nil
	}

	studentCount, err := s.students.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	teacherCount, err := s.users.CountByRole(ctx, models.RoleTeacher)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teachers")
	}
	assignmentCount, err := s.assignments.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assignments")
	}
	pendingTotal, err := s.fees.PendingTotal(ctx, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum pending fees")
	}

	dashboard := &models.StaffDashboard{
		Students:        studentCount,
		Teachers:        teacherCount,
		Assignments:     assignmentCount,
		PendingFeeTotal: pendingTotal,
	}

	if err := s.cache.Set(ctx, staffDashboardKey, dashboard, s.cacheTTL); err != nil {
		s.logger.Debug("staff dashboard cache write skipped", zap.Error(err))
	}
	return dashboard, nil
}

// Parent returns the linked student's standing for a guardian account.
func (s *DashboardService) Parent(ctx context.Context, claims *models.JWTClaims) (*models.ParentDashboard, error) {
	if claims == nil || claims.LinkedStudentID == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no student linked to this account")
	}
	studentID := *claims.LinkedStudentID

	key := fmt.Sprintf(parentDashboardKeyFmt, studentID)
	var cached models.ParentDashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "linked student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	total, present, err := s.attendance.StudentCounts(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	completed, assignmentsTotal, err := s.submissions.StudentCounts(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count submissions")
	}
	pendingTotal, err := s.fees.PendingTotal(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum pending fees")
	}

	dashboard := &models.ParentDashboard{
		StudentID:            student.ID,
		StudentName:          student.FullName,
		ClassLabel:           fmt.Sprintf("%s-%s", student.Class, student.Section),
		AssignmentsCompleted: completed,
		AssignmentsTotal:     assignmentsTotal,
		PendingFeeTotal:      pendingTotal,
	}
	if total > 0 {
		dashboard.AttendancePercent = round1(float64(present) / float64(total) * 100)
	}

	if err := s.cache.Set(ctx, key, dashboard, s.cacheTTL); err != nil {
		s.logger.Debug("parent dashboard cache write skipped", zap.Error(err))
	}
	return dashboard, nil
}

// InvalidateAll drops every cached dashboard payload. Write paths call this
// after mutating the underlying figures.
func (s *DashboardService) InvalidateAll(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardInvalidatePat); err != nil {
		s.logger.Debug("dashboard cache invalidation skipped", zap.Error(err))
	}
}
