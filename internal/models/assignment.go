package models

import "time"

// Assignment belongs to exactly one class/section. Creating one triggers the
// submission backfill for every student in that class/section.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Class       string    `db:"class" json:"class"`
	Section     string    `db:"section" json:"section"`
	DueDate     time.Time `db:"due_date" json:"due_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreateAssignmentRequest is the payload for publishing a new assignment.
type CreateAssignmentRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Class       string `json:"class" validate:"required"`
	Section     string `json:"section" validate:"required"`
	DueDate     string `json:"due_date" validate:"required"`
}

// CreateAssignmentResult reports the created assignment together with how
// many pending submissions the backfill created.
type CreateAssignmentResult struct {
	Assignment         *Assignment `json:"assignment"`
	SubmissionsCreated int         `json:"submissions_created"`
}

// AssignmentFilter scopes assignment listings.
type AssignmentFilter struct {
	Class    string
	Section  string
	Page     int
	PageSize int
}

// SubmissionStatus enumerates the completion states of a submission.
type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusCompleted SubmissionStatus = "completed"
)

// Valid returns true when the status is a supported value.
func (s SubmissionStatus) Valid() bool {
	return s == SubmissionStatusPending || s == SubmissionStatusCompleted
}

// AssignmentSubmission joins students to assignments. The store enforces
// uniqueness on (assignment_id, student_id); backfill inserts skip existing
// pairs.
type AssignmentSubmission struct {
	ID           string           `db:"id" json:"id"`
	AssignmentID string           `db:"assignment_id" json:"assignment_id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	Status       SubmissionStatus `db:"status" json:"status"`
	CompletedAt  *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// SubmissionDetail extends a submission with student and assignment metadata
// for listing endpoints.
type SubmissionDetail struct {
	AssignmentSubmission
	StudentName     string     `db:"student_name" json:"student_name"`
	RollNo          string     `db:"roll_no" json:"roll_no"`
	AssignmentTitle string     `db:"assignment_title" json:"assignment_title"`
	DueDate         *time.Time `db:"due_date" json:"due_date,omitempty"`
}
