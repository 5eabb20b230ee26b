package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// AttendanceRecord is a single daily attendance row. The store enforces
// uniqueness on (student_id, date); marking twice overwrites via upsert.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// MarkAttendanceRequest records one student's attendance for one date.
type MarkAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Status    string `json:"status" validate:"required"`
}

// BulkMarkAttendanceRequest records a whole class roster for one date.
type BulkMarkAttendanceRequest struct {
	Date    string                `json:"date" validate:"required"`
	Entries []BulkAttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// BulkAttendanceEntry is one row of a bulk marking call.
type BulkAttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required"`
}

// BulkMarkResult summarises a bulk marking call. Rows that failed are
// reported individually; the rest were applied.
type BulkMarkResult struct {
	Marked    int                      `json:"marked"`
	Conflicts []AttendanceMarkConflict `json:"conflicts,omitempty"`
}

// MonthlyReport is the attendance report for one class/section and month.
type MonthlyReport struct {
	Class    string                     `json:"class"`
	Section  string                     `json:"section"`
	Month    string                     `json:"month"`
	Students []StudentAttendanceSummary `json:"students"`
}

// ReportSendResult summarises a report fan-out to guardians.
type ReportSendResult struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// AttendanceFilter defines query filters for attendance listings.
type AttendanceFilter struct {
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Status    *AttendanceStatus
	Page      int
	PageSize  int
}

// AttendanceBand is the qualitative label derived from a presence percentage.
type AttendanceBand string

const (
	BandExcellent      AttendanceBand = "Excellent"
	BandGood           AttendanceBand = "Good"
	BandAverage        AttendanceBand = "Average"
	BandNeedsAttention AttendanceBand = "Needs Attention"
	BandCritical       AttendanceBand = "Critical"
	BandNoData         AttendanceBand = "No Data"
)

// BandFor maps a presence percentage onto its band. Lower bounds are
// inclusive; a student exactly on a boundary takes the higher band.
// A student with no records at all gets BandNoData, never BandCritical.
func BandFor(percent float64, total int) AttendanceBand {
	if total == 0 {
		return BandNoData
	}
	switch {
	case percent >= 85:
		return BandExcellent
	case percent >= 75:
		return BandGood
	case percent >= 65:
		return BandAverage
	case percent >= 50:
		return BandNeedsAttention
	default:
		return BandCritical
	}
}

// StudentAttendanceSummary is one row of the monthly class report, ordered
// by roll number ascending.
type StudentAttendanceSummary struct {
	StudentID   string         `json:"student_id"`
	RollNo      string         `json:"roll_no"`
	StudentName string         `json:"student_name"`
	ParentEmail string         `json:"parent_email,omitempty"`
	Total       int            `json:"total"`
	Present     int            `json:"present"`
	Absent      int            `json:"absent"`
	Percent     float64        `json:"percent"`
	Band        AttendanceBand `json:"band"`
}

// AttendanceMarkConflict captures a failed row inside a bulk marking call.
type AttendanceMarkConflict struct {
	StudentID string    `json:"student_id"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
}
