package models

import "time"

// FeeStatus enumerates the payment states of a fee record.
type FeeStatus string

const (
	FeeStatusPending FeeStatus = "pending"
	FeeStatusPaid    FeeStatus = "paid"
)

// Fee represents one month's fee obligation for a student. The pending→paid
// transition is one-way; there is no un-pay operation.
type Fee struct {
	ID        string     `db:"id" json:"id"`
	StudentID string     `db:"student_id" json:"student_id"`
	Month     string     `db:"month" json:"month"`
	Amount    float64    `db:"amount" json:"amount"`
	Status    FeeStatus  `db:"status" json:"status"`
	DueDate   *time.Time `db:"due_date" json:"due_date,omitempty"`
	PaidDate  *time.Time `db:"paid_date" json:"paid_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// CreateFeeRequest is the payload for recording a fee obligation.
type CreateFeeRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Month     string  `json:"month" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	DueDate   string  `json:"due_date"`
}

// ReminderBatchResult summarises one fee reminder run.
type ReminderBatchResult struct {
	GuardianCount int `json:"guardian_count"`
	Sent          int `json:"sent"`
	Failed        int `json:"failed"`
}

// PendingFeeRow is a pending fee joined to its student's guardian contact,
// the input shape of the reminder batcher.
type PendingFeeRow struct {
	FeeID       string  `db:"fee_id" json:"fee_id"`
	StudentID   string  `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	ParentEmail string  `db:"parent_email" json:"parent_email"`
	Month       string  `db:"month" json:"month"`
	Amount      float64 `db:"amount" json:"amount"`
}

// FeeLineItem is one entry of a guardian's reminder email.
type FeeLineItem struct {
	StudentName string  `json:"student_name"`
	Month       string  `json:"month"`
	Amount      float64 `json:"amount"`
}

// GuardianFeeGroup aggregates all pending fees owed by one guardian.
type GuardianFeeGroup struct {
	ParentEmail string        `json:"parent_email"`
	Items       []FeeLineItem `json:"items"`
	Total       float64       `json:"total"`
}
