package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bharatvidya/lms-api/internal/models"
	appErrors "github.com/bharatvidya/lms-api/pkg/errors"
	"github.com/bharatvidya/lms-api/pkg/export"
	"github.com/bharatvidya/lms-api/pkg/mailer"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	ListForStudentsInRange(ctx context.Context, studentIDs []string, from, to time.Time) ([]models.AttendanceRecord, error)
}

type attendanceStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByClassSection(ctx context.Context, class, section string) ([]models.Student, error)
}

// AttendanceService marks daily attendance and builds the monthly per-student
// report that staff can export or mail to guardians.
type AttendanceService struct {
	attendance attendanceRepository
	students   attendanceStudentRepository
	notifier   *Notifier
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	validator  *validator.Validate
	logger     *zap.Logger
	schoolName string
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(attendance attendanceRepository, students attendanceStudentRepository, notifier *Notifier, validate *validator.Validate, logger *zap.Logger, schoolName string) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{
		attendance: attendance,
		students:   students,
		notifier:   notifier,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		validator:  validate,
		logger:     logger,
		schoolName: schoolName,
	}
}

// Mark records one student's attendance for one date. Marking the same pair
// again overwrites the earlier status.
func (s *AttendanceService) Mark(ctx context.Context, req models.MarkAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	status := models.AttendanceStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be present or absent")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD format")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	record := &models.AttendanceRecord{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		Date:      date,
		Status:    status,
	}
	saved, err := s.attendance.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	return saved, nil
}

// BulkMark records a full roster for one date. A bad row does not abort the
// batch; it is reported as a conflict while the rest are applied.
func (s *AttendanceService) BulkMark(ctx context.Context, req models.BulkMarkAttendanceRequest) (*models.BulkMarkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk attendance payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use the YYYY-MM-DD format")
	}

	result := &models.BulkMarkResult{}
	for _, entry := range req.Entries {
		status := models.AttendanceStatus(entry.Status)
		if !status.Valid() {
			result.Conflicts = append(result.Conflicts, models.AttendanceMarkConflict{
				StudentID: entry.StudentID,
				Date:      date,
				Reason:    "status must be present or absent",
			})
			continue
		}

		record := &models.AttendanceRecord{
			ID:        uuid.NewString(),
			StudentID: entry.StudentID,
			Date:      date,
			Status:    status,
		}
		if _, err := s.attendance.Upsert(ctx, record); err != nil {
			s.logger.Warn("bulk attendance row failed",
				zap.String("student_id", entry.StudentID),
				zap.Error(err))
			result.Conflicts = append(result.Conflicts, models.AttendanceMarkConflict{
				StudentID: entry.StudentID,
				Date:      date,
				Reason:    "failed to save attendance",
			})
			continue
		}
		result.Marked++
	}

	return result, nil
}

// List returns raw attendance rows matching the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 31
	}

	records, total, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return records, pagination, nil
}

// MonthlyReport aggregates one class/section's attendance for a calendar
// month into per-student totals, percentages and bands, ordered by roll
// number. Students without records appear with zero counts and the No Data
// band.
func (s *AttendanceService) MonthlyReport(ctx context.Context, class, section, month string) (*models.MonthlyReport, error) {
	if !models.ValidClass(class) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class must be between 1 and 12")
	}
	if !models.ValidSection(section) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section must be one of A, B, C, D")
	}

	from, to, err := monthRange(month)
	if err != nil {
		return nil, err
	}

	roster, err := s.students.ListByClassSection(ctx, class, section)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}

	report := &models.MonthlyReport{Class: class, Section: section, Month: month}
	if len(roster) == 0 {
		report.Students = []models.StudentAttendanceSummary{}
		return report, nil
	}

	ids := make([]string, 0, len(roster))
	for _, student := range roster {
		ids = append(ids, student.ID)
	}

	records, err := s.attendance.ListForStudentsInRange(ctx, ids, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance records")
	}

	type counts struct{ total, present int }
	byStudent := make(map[string]*counts, len(roster))
	for _, record := range records {
		c := byStudent[record.StudentID]
		if c == nil {
			c = &counts{}
			byStudent[record.StudentID] = c
		}
		c.total++
		if record.Status == models.AttendanceStatusPresent {
			c.present++
		}
	}

	summaries := make([]models.StudentAttendanceSummary, 0, len(roster))
	for _, student := range roster {
		summary := models.StudentAttendanceSummary{
			StudentID:   student.ID,
			RollNo:      student.RollNo,
			StudentName: student.FullName,
			ParentEmail: student.ParentEmail,
		}
		if c := byStudent[student.ID]; c != nil {
			summary.Total = c.total
			summary.Present = c.present
			summary.Absent = c.total - c.present
		}
		if summary.Total > 0 {
			summary.Percent = round1(float64(summary.Present) / float64(summary.Total) * 100)
		}
		summary.Band = models.BandFor(summary.Percent, summary.Total)
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].RollNo < summaries[j].RollNo
	})

	report.Students = summaries
	return report, nil
}

// ExportMonthlyReport renders the monthly report as CSV or PDF bytes.
func (s *AttendanceService) ExportMonthlyReport(ctx context.Context, class, section, month, format string) ([]byte, string, error) {
	report, err := s.MonthlyReport(ctx, class, section, month)
	if err != nil {
		return nil, "", err
	}

	table := export.Table{
		Title:   fmt.Sprintf("%s Attendance Report - Class %s-%s (%s)", s.schoolName, class, section, month),
		Headers: []string{"Roll No", "Student", "Total Days", "Present", "Absent", "Percent", "Band"},
	}
	for _, row := range report.Students {
		table.Rows = append(table.Rows, []string{
			row.RollNo,
			row.StudentName,
			fmt.Sprintf("%d", row.Total),
			fmt.Sprintf("%d", row.Present),
			fmt.Sprintf("%d", row.Absent),
			fmt.Sprintf("%.1f", row.Percent),
			string(row.Band),
		})
	}

	switch format {
	case "csv":
		data, err := s.csv.Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, fmt.Sprintf("attendance-%s-%s-%s.csv", class, section, month), nil
	case "pdf":
		data, err := s.pdf.Render(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, fmt.Sprintf("attendance-%s-%s-%s.pdf", class, section, month), nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// SendReports mails each guardian their child's monthly summary. Students
// without a guardian email are skipped; one failed delivery does not stop the
// rest, and every attempt is logged.
func (s *AttendanceService) SendReports(ctx context.Context, class, section, month string) (*models.ReportSendResult, error) {
	report, err := s.MonthlyReport(ctx, class, section, month)
	if err != nil {
		return nil, err
	}

	result := &models.ReportSendResult{}
	for _, row := range report.Students {
		if row.ParentEmail == "" {
			continue
		}
		result.Recipients++

		msg := mailer.Message{
			To:      row.ParentEmail,
			Subject: fmt.Sprintf("Attendance Report for %s (%s)", row.StudentName, month),
			HTML:    attendanceReportHTML(s.schoolName, month, row),
		}
		if err := s.notifier.Submit(ctx, msg, models.MessageTypeAttendanceReport); err != nil {
			result.Failed++
			continue
		}
		result.Sent++
	}

	s.logger.Info("attendance reports dispatched",
		zap.String("class", class),
		zap.String("section", section),
		zap.String("month", month),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))

	return result, nil
}

func attendanceReportHTML(school, month string, row models.StudentAttendanceSummary) string {
	return fmt.Sprintf(
		"<h2>%s</h2><p>Attendance summary for <strong>%s</strong> (Roll No %s), %s.</p>"+
			"<ul><li>Days recorded: %d</li><li>Present: %d</li><li>Absent: %d</li>"+
			"<li>Attendance: %.1f%% (%s)</li></ul>",
		school, row.StudentName, row.RollNo, month,
		row.Total, row.Present, row.Absent, row.Percent, row.Band)
}

// monthRange converts a YYYY-MM label into the first and last day of that
// month.
func monthRange(month string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "month must use the YYYY-MM format")
	}
	to := from.AddDate(0, 1, -1)
	return from, to, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
