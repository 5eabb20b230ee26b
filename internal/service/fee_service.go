package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bharatvidya/lms-api/internal/models"
	appErrors "github.com/bharatvidya/lms-api/pkg/errors"
	"github.com/bharatvidya/lms-api/pkg/export"
	"github.com/bharatvidya/lms-api/pkg/mailer"
)

type feeRepository interface {
	Create(ctx context.Context, fee *models.Fee) error
	FindByID(ctx context.Context, id string) (*models.Fee, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Fee, error)
	ListPendingWithGuardians(ctx context.Context) ([]models.PendingFeeRow, error)
	MarkPaid(ctx context.Context, id string, paidDate time.Time) (bool, error)
}

type feeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// FeeService records fee obligations, processes payments, and batches
// pending fee reminders per guardian.
type FeeService struct {
	fees       feeRepository
	students   feeStudentRepository
	notifier   *Notifier
	pdf        *export.PDFExporter
	validator  *validator.Validate
	logger     *zap.Logger
	schoolName string
}

// NewFeeService constructs a FeeService.
func NewFeeService(fees feeRepository, students feeStudentRepository, notifier *Notifier, validate *validator.Validate, logger *zap.Logger, schoolName string) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeeService{
		fees:       fees,
		students:   students,
		notifier:   notifier,
		pdf:        export.NewPDFExporter(),
		validator:  validate,
		logger:     logger,
		schoolName: schoolName,
	}
}

// Create records a fee obligation for a student.
func (s *FeeService) Create(ctx context.Context, req models.CreateFeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	fee := &models.Fee{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		Month:     req.Month,
		Amount:    req.Amount,
		Status:    models.FeeStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if req.DueDate != "" {
		due, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "due_date must use the YYYY-MM-DD format")
		}
		fee.DueDate = &due
	}

	if err := s.fees.Create(ctx, fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee")
	}
	return fee, nil
}

// ListByStudent returns a student's fee history.
func (s *FeeService) ListByStudent(ctx context.Context, studentID string) ([]models.Fee, error) {
	fees, err := s.fees.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fees")
	}
	return fees, nil
}

// MarkPaid settles a pending fee. The transition is one-way: paying an
// already paid fee is a conflict, and there is no un-pay.
func (s *FeeService) MarkPaid(ctx context.Context, feeID string) (*models.Fee, error) {
	paid, err := s.fees.MarkPaid(ctx, feeID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark fee paid")
	}
	if !paid {
		fee, err := s.fees.FindByID(ctx, feeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "fee not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch fee")
		}
		if fee.Status == models.FeeStatusPaid {
			return nil, appErrors.Clone(appErrors.ErrConflict, "fee is already paid")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "fee could not be settled")
	}

	fee, err := s.fees.FindByID(ctx, feeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch fee")
	}
	return fee, nil
}

// GroupPendingByGuardian collects all pending fees and groups them by the
// guardian's email. Rows whose student has no guardian email on file are
// excluded. Groups come back sorted by email for stable output.
func (s *FeeService) GroupPendingByGuardian(ctx context.Context) ([]models.GuardianFeeGroup, error) {
	rows, err := s.fees.ListPendingWithGuardians(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending fees")
	}

	byEmail := make(map[string]*models.GuardianFeeGroup)
	for _, row := range rows {
		email := strings.TrimSpace(row.ParentEmail)
		if email == "" {
			continue
		}
		group := byEmail[email]
		if group == nil {
			group = &models.GuardianFeeGroup{ParentEmail: email}
			byEmail[email] = group
		}
		group.Items = append(group.Items, models.FeeLineItem{
			StudentName: row.StudentName,
			Month:       row.Month,
			Amount:      row.Amount,
		})
		group.Total += row.Amount
	}

	groups := make([]models.GuardianFeeGroup, 0, len(byEmail))
	for _, group := range byEmail {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].ParentEmail < groups[j].ParentEmail
	})
	return groups, nil
}

// SendReminders emails each guardian one consolidated reminder covering all
// of their pending fees. One failed delivery does not stop the rest, and
// every attempt is logged.
func (s *FeeService) SendReminders(ctx context.Context) (*models.ReminderBatchResult, error) {
	groups, err := s.GroupPendingByGuardian(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.ReminderBatchResult{GuardianCount: len(groups)}
	if len(groups) == 0 {
		s.logger.Info("no pending fees, skipping reminder batch")
		return result, nil
	}

	for _, group := range groups {
		msg := mailer.Message{
			To:      group.ParentEmail,
			Subject: fmt.Sprintf("%s - Pending Fee Reminder", s.schoolName),
			HTML:    feeReminderHTML(s.schoolName, group),
		}
		if err := s.notifier.Submit(ctx, msg, models.MessageTypeFeeReminder); err != nil {
			result.Failed++
			continue
		}
		result.Sent++
	}

	s.logger.Info("fee reminders dispatched",
		zap.Int("guardians", result.GuardianCount),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))

	return result, nil
}

// Statement renders a student's fee history as a PDF.
func (s *FeeService) Statement(ctx context.Context, studentID string) ([]byte, string, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	fees, err := s.fees.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fees")
	}

	table := export.Table{
		Title:   fmt.Sprintf("%s Fee Statement - %s (Roll No %s)", s.schoolName, student.FullName, student.RollNo),
		Headers: []string{"Month", "Amount", "Status", "Paid On"},
	}
	for _, fee := range fees {
		paidOn := "-"
		if fee.PaidDate != nil {
			paidOn = fee.PaidDate.Format("2006-01-02")
		}
		table.Rows = append(table.Rows, []string{
			fee.Month,
			fmt.Sprintf("%.2f", fee.Amount),
			string(fee.Status),
			paidOn,
		})
	}

	data, err := s.pdf.Render(table)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return data, fmt.Sprintf("fee-statement-%s.pdf", student.RollNo), nil
}

func feeReminderHTML(school string, group models.GuardianFeeGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2><p>The following fees are pending:</p><ul>", school)
	for _, item := range group.Items {
		fmt.Fprintf(&b, "<li>%s - %s: %.2f</li>", item.StudentName, item.Month, item.Amount)
	}
	fmt.Fprintf(&b, "</ul><p><strong>Total due: %.2f</strong></p>", group.Total)
	return b.String()
}
