package models

import "time"

// MessageType classifies entries in the outbound message audit trail.
type MessageType string

const (
	MessageTypeAttendanceReport MessageType = "attendance_report"
	MessageTypeFeeReminder      MessageType = "fee_reminder"
	MessageTypeBroadcast        MessageType = "broadcast"
	MessageTypeTransactional    MessageType = "transactional"
)

// MessageLog is an append-only record of one email submission attempt.
// A row is written whenever a message was handed to the notification
// gateway, whether or not delivery succeeded.
type MessageLog struct {
	ID        string      `db:"id" json:"id"`
	Recipient string      `db:"recipient" json:"recipient"`
	Subject   string      `db:"subject" json:"subject"`
	Message   string      `db:"message" json:"message"`
	Type      MessageType `db:"type" json:"type"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// MessageLogFilter scopes audit trail listings.
type MessageLogFilter struct {
	Type     *MessageType
	Page     int
	PageSize int
}
