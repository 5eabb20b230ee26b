package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bharatvidya/lms-api/internal/models"
)

type mockAttendanceRepo struct {
	records map[string]models.AttendanceRecord // keyed by studentID+date
}

func attKey(studentID string, date time.Time) string {
	return studentID + ":" + date.Format("2006-01-02")
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if m.records == nil {
		m.records = make(map[string]models.AttendanceRecord)
	}
	key := attKey(record.StudentID, record.Date)
	if existing, ok := m.records[key]; ok {
		existing.Status = record.Status
		m.records[key] = existing
		return &existing, nil
	}
	m.records[key] = *record
	return record, nil
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	var list []models.AttendanceRecord
	for _, r := range m.records {
		list = append(list, r)
	}
	return list, len(list), nil
}

func (m *mockAttendanceRepo) ListForStudentsInRange(ctx context.Context, studentIDs []string, from, to time.Time) ([]models.AttendanceRecord, error) {
	ids := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		ids[id] = true
	}
	var list []models.AttendanceRecord
	for _, r := range m.records {
		if ids[r.StudentID] && !r.Date.Before(from) && !r.Date.After(to) {
			list = append(list, r)
		}
	}
	return list, nil
}

type mockClassStudents struct {
	students []models.Student
}

func (m *mockClassStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, s := range m.students {
		if s.ID == id {
			copy := s
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassStudents) ListByClassSection(ctx context.Context, class, section string) ([]models.Student, error) {
	var matched []models.Student
	for _, s := range m.students {
		if s.Class == class && s.Section == section {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

func seedAttendance(repo *mockAttendanceRepo, studentID, month string, present, absent int) {
	base, _ := time.Parse("2006-01", month)
	day := 0
	for i := 0; i < present; i++ {
		repo.Upsert(context.Background(), &models.AttendanceRecord{
			ID: "r", StudentID: studentID, Date: base.AddDate(0, 0, day), Status: models.AttendanceStatusPresent,
		})
		day++
	}
	for i := 0; i < absent; i++ {
		repo.Upsert(context.Background(), &models.AttendanceRecord{
			ID: "r", StudentID: studentID, Date: base.AddDate(0, 0, day), Status: models.AttendanceStatusAbsent,
		})
		day++
	}
}

func newAttendanceService(att *mockAttendanceRepo, students *mockClassStudents, notifier *Notifier) *AttendanceService {
	return NewAttendanceService(att, students, notifier, validator.New(), zap.NewNop(), "Bharat Vidya School")
}

func TestAttendanceServiceMarkOverwrites(t *testing.T) {
	att := &mockAttendanceRepo{}
	students := &mockClassStudents{students: []models.Student{{ID: "s1", RollNo: "001", Class: "5", Section: "A"}}}
	svc := newAttendanceService(att, students, nil)

	record, err := svc.Mark(context.Background(), models.MarkAttendanceRequest{
		StudentID: "s1", Date: "2026-08-10", Status: "present",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)

	record, err = svc.Mark(context.Background(), models.MarkAttendanceRequest{
		StudentID: "s1", Date: "2026-08-10", Status: "absent",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, record.Status)
	assert.Len(t, att.records, 1)
}

func TestAttendanceServiceMarkRejectsUnknownStudent(t *testing.T) {
	svc := newAttendanceService(&mockAttendanceRepo{}, &mockClassStudents{}, nil)

	_, err := svc.Mark(context.Background(), models.MarkAttendanceRequest{
		StudentID: "ghost", Date: "2026-08-10", Status: "present",
	})
	require.Error(t, err)
}

func TestAttendanceServiceBulkMarkCollectsConflicts(t *testing.T) {
	att := &mockAttendanceRepo{}
	students := &mockClassStudents{students: []models.Student{{ID: "s1", Class: "5", Section: "A"}}}
	svc := newAttendanceService(att, students, nil)

	result, err := svc.BulkMark(context.Background(), models.BulkMarkAttendanceRequest{
		Date: "2026-08-11",
		Entries: []models.BulkAttendanceEntry{
			{StudentID: "s1", Status: "present"},
			{StudentID: "s2", Status: "late"},
			{StudentID: "s3", Status: "absent"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Marked)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "s2", result.Conflicts[0].StudentID)
}

func TestAttendanceServiceMonthlyReportAggregates(t *testing.T) {
	att := &mockAttendanceRepo{}
	students := &mockClassStudents{students: []models.Student{
		{ID: "s2", RollNo: "002", FullName: "Beta", Class: "6", Section: "A", ParentEmail: "b@example.com"},
		{ID: "s1", RollNo: "001", FullName: "Alpha", Class: "6", Section: "A", ParentEmail: "a@example.com"},
		{ID: "s3", RollNo: "003", FullName: "Gamma", Class: "6", Section: "A"},
	}}
	seedAttendance(att, "s1", "2026-08", 2, 1) // 66.7 percent
	seedAttendance(att, "s2", "2026-08", 17, 3) // 85 percent
	svc := newAttendanceService(att, students, nil)

	report, err := svc.MonthlyReport(context.Background(), "6", "A", "2026-08")
	require.NoError(t, err)
	require.Len(t, report.Students, 3)

	// ordered by roll number ascending
	assert.Equal(t, "001", report.Students[0].RollNo)
	assert.Equal(t, "002", report.Students[1].RollNo)
	assert.Equal(t, "003", report.Students[2].RollNo)

	alpha := report.Students[0]
	assert.Equal(t, 3, alpha.Total)
	assert.Equal(t, 2, alpha.Present)
	assert.Equal(t, 1, alpha.Absent)
	assert.InDelta(t, 66.7, alpha.Percent, 0.01)
	assert.Equal(t, models.BandAverage, alpha.Band)

	beta := report.Students[1]
	assert.InDelta(t, 85.0, beta.Percent, 0.01)
	assert.Equal(t, models.BandExcellent, beta.Band)

	gamma := report.Students[2]
	assert.Equal(t, 0, gamma.Total)
	assert.Equal(t, 0.0, gamma.Percent)
	assert.Equal(t, models.BandNoData, gamma.Band)
}

func TestAttendanceServiceMonthlyReportRejectsBadMonth(t *testing.T) {
	svc := newAttendanceService(&mockAttendanceRepo{}, &mockClassStudents{}, nil)

	_, err := svc.MonthlyReport(context.Background(), "6", "A", "August 2026")
	require.Error(t, err)
}

func TestAttendanceServiceSendReportsIsolatesFailures(t *testing.T) {
	att := &mockAttendanceRepo{}
	students := &mockClassStudents{students: []models.Student{
		{ID: "s1", RollNo: "001", FullName: "Alpha", Class: "9", Section: "B", ParentEmail: "a@example.com"},
		{ID: "s2", RollNo: "002", FullName: "Beta", Class: "9", Section: "B", ParentEmail: "down@example.com"},
		{ID: "s3", RollNo: "003", FullName: "Gamma", Class: "9", Section: "B"}, // no guardian email
	}}
	seedAttendance(att, "s1", "2026-08", 5, 0)
	seedAttendance(att, "s2", "2026-08", 4, 1)

	mail := &fakeMailer{failFor: map[string]bool{"down@example.com": true}}
	logs := &fakeLogStore{}
	notifier := NewNotifier(mail, logs, nil, zap.NewNop())
	svc := newAttendanceService(att, students, notifier)

	result, err := svc.SendReports(context.Background(), "9", "B", "2026-08")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Recipients)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)

	// a log row exists for every attempt, including the failed one
	assert.Len(t, logs.entries, 2)
	for _, entry := range logs.entries {
		assert.Equal(t, models.MessageTypeAttendanceReport, entry.Type)
	}
}

func TestAttendanceServiceExportMonthlyReportCSV(t *testing.T) {
	att := &mockAttendanceRepo{}
	students := &mockClassStudents{students: []models.Student{
		{ID: "s1", RollNo: "001", FullName: "Alpha", Class: "4", Section: "C"},
	}}
	seedAttendance(att, "s1", "2026-07", 10, 0)
	svc := newAttendanceService(att, students, nil)

	data, filename, err := svc.ExportMonthlyReport(context.Background(), "4", "C", "2026-07", "csv")
	require.NoError(t, err)
	assert.Equal(t, "attendance-4-C-2026-07.csv", filename)
	assert.Contains(t, string(data), "Alpha")
	assert.Contains(t, string(data), "100.0")

	_, _, err = svc.ExportMonthlyReport(context.Background(), "4", "C", "2026-07", "xlsx")
	require.Error(t, err)
}
