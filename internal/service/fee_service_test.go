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

type mockFeeRepo struct {
	fees    map[string]models.Fee
	pending []models.PendingFeeRow
}

func (m *mockFeeRepo) Create(ctx context.Context, fee *models.Fee) error {
	if m.fees == nil {
		m.fees = make(map[string]models.Fee)
	}
	m.fees[fee.ID] = *fee
	return nil
}

func (m *mockFeeRepo) FindByID(ctx context.Context, id string) (*models.Fee, error) {
	if f, ok := m.fees[id]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeeRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Fee, error) {
	var list []models.Fee
	for _, f := range m.fees {
		if f.StudentID == studentID {
			list = append(list, f)
		}
	}
	return list, nil
}

func (m *mockFeeRepo) ListPendingWithGuardians(ctx context.Context) ([]models.PendingFeeRow, error) {
	return m.pending, nil
}

func (m *mockFeeRepo) MarkPaid(ctx context.Context, id string, paidDate time.Time) (bool, error) {
	f, ok := m.fees[id]
	if !ok || f.Status != models.FeeStatusPending {
		return false, nil
	}
	f.Status = models.FeeStatusPaid
	f.PaidDate = &paidDate
	m.fees[id] = f
	return true, nil
}

func newFeeService(fees *mockFeeRepo, students *mockClassStudents, notifier *Notifier) *FeeService {
	return NewFeeService(fees, students, notifier, validator.New(), zap.NewNop(), "Bharat Vidya School")
}

func TestFeeServiceGroupPendingByGuardian(t *testing.T) {
	fees := &mockFeeRepo{pending: []models.PendingFeeRow{
		{FeeID: "f1", StudentID: "s1", StudentName: "Alpha", ParentEmail: "e1@example.com", Month: "August 2026", Amount: 500},
		{FeeID: "f2", StudentID: "s2", StudentName: "Beta", ParentEmail: "e2@example.com", Month: "August 2026", Amount: 450},
		{FeeID: "f3", StudentID: "s1", StudentName: "Alpha", ParentEmail: "e1@example.com", Month: "July 2026", Amount: 300},
		{FeeID: "f4", StudentID: "s3", StudentName: "Gamma", ParentEmail: "", Month: "August 2026", Amount: 999},
	}}
	svc := newFeeService(fees, &mockClassStudents{}, nil)

	groups, err := svc.GroupPendingByGuardian(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// sorted by guardian email; students without one are excluded
	assert.Equal(t, "e1@example.com", groups[0].ParentEmail)
	assert.Len(t, groups[0].Items, 2)
	assert.Equal(t, 800.0, groups[0].Total)

	assert.Equal(t, "e2@example.com", groups[1].ParentEmail)
	assert.Equal(t, 450.0, groups[1].Total)
}

func TestFeeServiceSendRemindersOnePerGuardian(t *testing.T) {
	pending := []models.PendingFeeRow{
		{FeeID: "f1", StudentName: "A", ParentEmail: "g1@example.com", Month: "Aug", Amount: 100},
		{FeeID: "f2", StudentName: "B", ParentEmail: "g2@example.com", Month: "Aug", Amount: 100},
		{FeeID: "f3", StudentName: "C", ParentEmail: "g3@example.com", Month: "Aug", Amount: 100},
		{FeeID: "f4", StudentName: "D", ParentEmail: "g4@example.com", Month: "Aug", Amount: 100},
		{FeeID: "f5", StudentName: "E", ParentEmail: "g5@example.com", Month: "Aug", Amount: 100},
	}
	fees := &mockFeeRepo{pending: pending}
	mail := &fakeMailer{failFor: map[string]bool{"g3@example.com": true}}
	logs := &fakeLogStore{}
	notifier := NewNotifier(mail, logs, nil, zap.NewNop())
	svc := newFeeService(fees, &mockClassStudents{}, notifier)

	result, err := svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, result.GuardianCount)
	assert.Equal(t, 4, result.Sent)
	assert.Equal(t, 1, result.Failed)

	// every guardian attempt is logged, including the failed one
	assert.Len(t, logs.entries, 5)
	for _, entry := range logs.entries {
		assert.Equal(t, models.MessageTypeFeeReminder, entry.Type)
	}
}

func TestFeeServiceSendRemindersNoPending(t *testing.T) {
	mail := &fakeMailer{}
	logs := &fakeLogStore{}
	notifier := NewNotifier(mail, logs, nil, zap.NewNop())
	svc := newFeeService(&mockFeeRepo{}, &mockClassStudents{}, notifier)

	result, err := svc.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.GuardianCount)
	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, mail.sent)
	assert.Empty(t, logs.entries)
}

func TestFeeServiceMarkPaidIsOneWay(t *testing.T) {
	fees := &mockFeeRepo{fees: map[string]models.Fee{
		"f1": {ID: "f1", StudentID: "s1", Month: "August 2026", Amount: 500, Status: models.FeeStatusPending},
	}}
	svc := newFeeService(fees, &mockClassStudents{}, nil)

	fee, err := svc.MarkPaid(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, fee.Status)
	assert.NotNil(t, fee.PaidDate)

	_, err = svc.MarkPaid(context.Background(), "f1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestFeeServiceMarkPaidNotFound(t *testing.T) {
	svc := newFeeService(&mockFeeRepo{}, &mockClassStudents{}, nil)

	_, err := svc.MarkPaid(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestFeeServiceCreateValidatesStudent(t *testing.T) {
	svc := newFeeService(&mockFeeRepo{}, &mockClassStudents{}, nil)

	_, err := svc.Create(context.Background(), models.CreateFeeRequest{
		StudentID: "ghost", Month: "August 2026", Amount: 500,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestFeeServiceCreateDefaultsPending(t *testing.T) {
	fees := &mockFeeRepo{}
	students := &mockClassStudents{students: []models.Student{{ID: "s1", Class: "5", Section: "A"}}}
	svc := newFeeService(fees, students, nil)

	fee, err := svc.Create(context.Background(), models.CreateFeeRequest{
		StudentID: "s1", Month: "September 2026", Amount: 750,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPending, fee.Status)
	assert.Nil(t, fee.PaidDate)
}
