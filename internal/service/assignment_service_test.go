package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bharatvidya/lms-api/internal/models"
	appErrors "github.com/bharatvidya/lms-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]models.Assignment
	created     *models.Assignment
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if m.assignments == nil {
		m.assignments = make(map[string]models.Assignment)
	}
	m.assignments[assignment.ID] = *assignment
	m.created = assignment
	return nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	var list []models.Assignment
	for _, a := range m.assignments {
		list = append(list, a)
	}
	return list, len(list), nil
}

type mockRosterLister struct {
	students []models.Student
}

func (m *mockRosterLister) ListByClassSection(ctx context.Context, class, section string) ([]models.Student, error) {
	var matched []models.Student
	for _, s := range m.students {
		if s.Class == class && s.Section == section {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

type mockSubmissionRepo struct {
	mockSubmissionInserter
	submissions map[string]models.AssignmentSubmission
	statusSet   map[string]models.SubmissionStatus
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.AssignmentSubmission, error) {
	if s, ok := m.submissions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) SetStatus(ctx context.Context, id string, status models.SubmissionStatus) (*models.AssignmentSubmission, error) {
	if m.statusSet == nil {
		m.statusSet = make(map[string]models.SubmissionStatus)
	}
	m.statusSet[id] = status
	s := m.submissions[id]
	s.Status = status
	if status == models.SubmissionStatusCompleted {
		now := time.Now().UTC()
		s.CompletedAt = &now
	} else {
		s.CompletedAt = nil
	}
	m.submissions[id] = s
	return &s, nil
}

func (m *mockSubmissionRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SubmissionDetail, error) {
	var list []models.SubmissionDetail
	for _, s := range m.submissions {
		if s.AssignmentID == assignmentID {
			list = append(list, models.SubmissionDetail{AssignmentSubmission: s})
		}
	}
	return list, nil
}

func (m *mockSubmissionRepo) ListByStudent(ctx context.Context, studentID string) ([]models.SubmissionDetail, error) {
	var list []models.SubmissionDetail
	for _, s := range m.submissions {
		if s.StudentID == studentID {
			list = append(list, models.SubmissionDetail{AssignmentSubmission: s})
		}
	}
	return list, nil
}

func TestAssignmentServiceCreateBackfillsRoster(t *testing.T) {
	assignments := &mockAssignmentRepo{}
	roster := &mockRosterLister{students: []models.Student{
		{ID: "s1", Class: "8", Section: "A"},
		{ID: "s2", Class: "8", Section: "A"},
		{ID: "s3", Class: "8", Section: "B"},
	}}
	submissions := &mockSubmissionRepo{}
	svc := NewAssignmentService(assignments, roster, submissions, nil, validator.New(), zap.NewNop())

	result, err := svc.Create(context.Background(), models.CreateAssignmentRequest{
		Title:   "Algebra worksheet",
		Class:   "8",
		Section: "A",
		DueDate: "2026-09-15",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SubmissionsCreated)
	require.NotNil(t, assignments.created)
	assert.Equal(t, "8", assignments.created.Class)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), assignments.created.DueDate)
}

func TestAssignmentServiceCreateRejectsBadDueDate(t *testing.T) {
	svc := NewAssignmentService(&mockAssignmentRepo{}, &mockRosterLister{}, &mockSubmissionRepo{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.CreateAssignmentRequest{
		Title: "X", Class: "8", Section: "A", DueDate: "15-09-2026",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAssignmentServiceCreateEmptyRoster(t *testing.T) {
	svc := NewAssignmentService(&mockAssignmentRepo{}, &mockRosterLister{}, &mockSubmissionRepo{}, nil, validator.New(), zap.NewNop())

	result, err := svc.Create(context.Background(), models.CreateAssignmentRequest{
		Title: "Essay", Class: "11", Section: "D", DueDate: "2026-10-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.SubmissionsCreated)
}

func TestAssignmentServiceSetSubmissionStatusStampsCompletedAt(t *testing.T) {
	submissions := &mockSubmissionRepo{submissions: map[string]models.AssignmentSubmission{
		"sub1": {ID: "sub1", AssignmentID: "a1", StudentID: "s1", Status: models.SubmissionStatusPending},
	}}
	svc := NewAssignmentService(&mockAssignmentRepo{}, &mockRosterLister{}, submissions, nil, validator.New(), zap.NewNop())

	staff := &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}
	updated, err := svc.SetSubmissionStatus(context.Background(), "sub1", models.SubmissionStatusCompleted, staff)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	updated, err = svc.SetSubmissionStatus(context.Background(), "sub1", models.SubmissionStatusPending, staff)
	require.NoError(t, err)
	assert.Nil(t, updated.CompletedAt)
}

func TestAssignmentServiceSetSubmissionStatusParentScoping(t *testing.T) {
	submissions := &mockSubmissionRepo{submissions: map[string]models.AssignmentSubmission{
		"sub1": {ID: "sub1", AssignmentID: "a1", StudentID: "s1", Status: models.SubmissionStatusPending},
	}}
	svc := NewAssignmentService(&mockAssignmentRepo{}, &mockRosterLister{}, submissions, nil, validator.New(), zap.NewNop())

	other := "s2"
	parent := &models.JWTClaims{UserID: "u1", Role: models.RoleParent, LinkedStudentID: &other}
	_, err := svc.SetSubmissionStatus(context.Background(), "sub1", models.SubmissionStatusCompleted, parent)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	own := "s1"
	parent.LinkedStudentID = &own
	updated, err := svc.SetSubmissionStatus(context.Background(), "sub1", models.SubmissionStatusCompleted, parent)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusCompleted, updated.Status)
}

func TestAssignmentServiceSetSubmissionStatusRejectsUnknownStatus(t *testing.T) {
	svc := NewAssignmentService(&mockAssignmentRepo{}, &mockRosterLister{}, &mockSubmissionRepo{}, nil, validator.New(), zap.NewNop())

	_, err := svc.SetSubmissionStatus(context.Background(), "sub1", models.SubmissionStatus("graded"), nil)
	require.Error(t, err)
}

func TestAssignmentServiceSubmissionsByAssignmentNotFound(t *testing.T) {
	svc := NewAssignmentService(&mockAssignmentRepo{}, &mockRosterLister{}, &mockSubmissionRepo{}, nil, validator.New(), zap.NewNop())

	_, err := svc.SubmissionsByAssignment(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
