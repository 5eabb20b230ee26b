package models

// StaffDashboard summarises school-wide figures for admins and teachers.
type StaffDashboard struct {
	Students        int     `json:"students"`
	Teachers        int     `json:"teachers"`
	Assignments     int     `json:"assignments"`
	PendingFeeTotal float64 `json:"pending_fee_total"`
}

// ParentDashboard summarises the linked student's standing for a guardian.
type ParentDashboard struct {
	StudentID            string  `json:"student_id"`
	StudentName          string  `json:"student_name"`
	ClassLabel           string  `json:"class_label"`
	AttendancePercent    float64 `json:"attendance_percent"`
	AssignmentsCompleted int     `json:"assignments_completed"`
	AssignmentsTotal     int     `json:"assignments_total"`
	PendingFeeTotal      float64 `json:"pending_fee_total"`
}
