package models

import "time"

// ClassLevels and Sections enumerate the valid class/section labels.
var (
	ClassLevels = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}
	Sections    = []string{"A", "B", "C", "D"}
)

// ValidClass reports whether the class label is one of "1".."12".
func ValidClass(class string) bool {
	for _, c := range ClassLevels {
		if c == class {
			return true
		}
	}
	return false
}

// ValidSection reports whether the section label is one of A-D.
func ValidSection(section string) bool {
	for _, s := range Sections {
		if s == section {
			return true
		}
	}
	return false
}

// Student represents a learner enrolled in the school. Roll numbers are
// zero-padded strings, unique across the school, and sort lexicographically.
type Student struct {
	ID          string    `db:"id" json:"id"`
	RollNo      string    `db:"roll_no" json:"roll_no"`
	FullName    string    `db:"full_name" json:"full_name"`
	Class       string    `db:"class" json:"class"`
	Section     string    `db:"section" json:"section"`
	ParentEmail string    `db:"parent_email" json:"parent_email"`
	FatherName  string    `db:"father_name" json:"father_name"`
	MotherName  string    `db:"mother_name" json:"mother_name"`
	Phone       string    `db:"phone" json:"phone"`
	Address     string    `db:"address" json:"address"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// EnrollStudentRequest is the payload for enrolling a new student.
type EnrollStudentRequest struct {
	RollNo      string `json:"roll_no" validate:"required"`
	FullName    string `json:"full_name" validate:"required"`
	Class       string `json:"class" validate:"required"`
	Section     string `json:"section" validate:"required"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
	FatherName  string `json:"father_name"`
	MotherName  string `json:"mother_name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// EnrollStudentResult reports the enrolled student together with how many
// pending submissions the roster backfill created.
type EnrollStudentResult struct {
	Student            *Student `json:"student"`
	SubmissionsCreated int      `json:"submissions_created"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Class    string
	Section  string
	Page     int
	PageSize int
}
