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

type mockStudentRepo struct {
	students map[string]models.Student
	rollNos  map[string]bool
	created  *models.Student
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	m.students[student.ID] = *student
	m.created = student
	return nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByRollNo(ctx context.Context, rollNo string) (bool, error) {
	return m.rollNos[rollNo], nil
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var list []models.Student
	for _, s := range m.students {
		list = append(list, s)
	}
	return list, len(list), nil
}

type mockAssignmentLister struct {
	assignments []models.Assignment
}

func (m *mockAssignmentLister) ListByClassSection(ctx context.Context, class, section string) ([]models.Assignment, error) {
	var matched []models.Assignment
	for _, a := range m.assignments {
		if a.Class == class && a.Section == section {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

type mockSubmissionInserter struct {
	existing map[string]bool
	inserted []string
	err      error
}

func (m *mockSubmissionInserter) InsertPending(ctx context.Context, assignmentID, studentID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	key := assignmentID + ":" + studentID
	if m.existing[key] {
		return false, nil
	}
	if m.existing == nil {
		m.existing = make(map[string]bool)
	}
	m.existing[key] = true
	m.inserted = append(m.inserted, key)
	return true, nil
}

func TestStudentServiceEnrollBackfillsSubmissions(t *testing.T) {
	students := &mockStudentRepo{}
	assignments := &mockAssignmentLister{assignments: []models.Assignment{
		{ID: "a1", Class: "5", Section: "A"},
		{ID: "a2", Class: "5", Section: "A"},
		{ID: "a3", Class: "5", Section: "B"},
	}}
	submissions := &mockSubmissionInserter{}
	svc := NewStudentService(students, assignments, submissions, nil, validator.New(), zap.NewNop())

	result, err := svc.Enroll(context.Background(), models.EnrollStudentRequest{
		RollNo:   "012",
		FullName: "Aarav Sharma",
		Class:    "5",
		Section:  "A",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SubmissionsCreated)
	assert.Len(t, submissions.inserted, 2)
	require.NotNil(t, students.created)
	assert.Equal(t, "012", students.created.RollNo)
}

func TestStudentServiceEnrollSkipsExistingPairs(t *testing.T) {
	students := &mockStudentRepo{}
	assignments := &mockAssignmentLister{assignments: []models.Assignment{
		{ID: "a1", Class: "7", Section: "C"},
	}}
	submissions := &mockSubmissionInserter{}
	svc := NewStudentService(students, assignments, submissions, nil, validator.New(), zap.NewNop())

	first, err := svc.Enroll(context.Background(), models.EnrollStudentRequest{
		RollNo: "001", FullName: "Priya Patel", Class: "7", Section: "C",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.SubmissionsCreated)

	// a second run against the same pair reports zero creations
	inserted, err := submissions.InsertPending(context.Background(), "a1", first.Student.ID)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestStudentServiceEnrollRejectsDuplicateRollNo(t *testing.T) {
	students := &mockStudentRepo{rollNos: map[string]bool{"007": true}}
	svc := NewStudentService(students, &mockAssignmentLister{}, &mockSubmissionInserter{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), models.EnrollStudentRequest{
		RollNo: "007", FullName: "Rohan Gupta", Class: "3", Section: "B",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Nil(t, students.created)
}

func TestStudentServiceEnrollValidatesClassAndSection(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, &mockAssignmentLister{}, &mockSubmissionInserter{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), models.EnrollStudentRequest{
		RollNo: "001", FullName: "X", Class: "13", Section: "A",
	})
	require.Error(t, err)

	_, err = svc.Enroll(context.Background(), models.EnrollStudentRequest{
		RollNo: "001", FullName: "X", Class: "4", Section: "E",
	})
	require.Error(t, err)
}

func TestStudentServiceEnrollPropagatesBackfillFailure(t *testing.T) {
	assignments := &mockAssignmentLister{assignments: []models.Assignment{{ID: "a1", Class: "2", Section: "A"}}}
	submissions := &mockSubmissionInserter{err: errors.New("db down")}
	svc := NewStudentService(&mockStudentRepo{}, assignments, submissions, nil, validator.New(), zap.NewNop())

	_, err := svc.Enroll(context.Background(), models.EnrollStudentRequest{
		RollNo: "002", FullName: "Ananya Iyer", Class: "2", Section: "A",
	})
	require.Error(t, err)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, &mockAssignmentLister{}, &mockSubmissionInserter{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentServiceEnrollTimestampsUTC(t *testing.T) {
	students := &mockStudentRepo{}
	svc := NewStudentService(students, &mockAssignmentLister{}, &mockSubmissionInserter{}, nil, validator.New(), zap.NewNop())

	result, err := svc.Enroll(context.Background(), models.EnrollStudentRequest{
		RollNo: "099", FullName: "Diya Singh", Class: "12", Section: "D",
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), result.Student.CreatedAt, time.Minute)
}
