package models

import "time"

// Class is a grade level (e.g. "X", "XI").
type Class struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// Section is a named division within a class (e.g. "A").
type Section struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ClassSection pairs a class and a section for one academic year. Mappings
// are re-created each year; the (class_section, academic_year) pair is the
// roll-numbering scope.
type ClassSection struct {
	ID             string    `db:"id" json:"id"`
	ClassID        string    `db:"class_id" json:"class_id"`
	SectionID      string    `db:"section_id" json:"section_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ClassSectionDetail carries the display names of the mapped entities.
type ClassSectionDetail struct {
	ClassSection
	ClassCode        string `db:"class_code" json:"class_code"`
	ClassName        string `db:"class_name" json:"class_name"`
	SectionName      string `db:"section_name" json:"section_name"`
	AcademicYearCode string `db:"academic_year_code" json:"academic_year_code"`
}

// RosterEntry is one row of a class-section roster ordered by roll number.
type RosterEntry struct {
	EnrollmentID string  `db:"enrollment_id" json:"enrollment_id"`
	StudentID    string  `db:"student_id" json:"student_id"`
	AdmissionNo  string  `db:"admission_no" json:"admission_no"`
	FirstName    string  `db:"first_name" json:"first_name"`
	MiddleName   *string `db:"middle_name" json:"middle_name,omitempty"`
	LastName     string  `db:"last_name" json:"last_name"`
	RollNumber   *int    `db:"roll_number" json:"roll_number,omitempty"`
}
