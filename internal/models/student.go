package models

import "time"

// Person holds identity fields shared by students and guardians. Persons are
// stable across academic years.
type Person struct {
	ID         string     `db:"id" json:"id"`
	FirstName  string     `db:"first_name" json:"first_name"`
	MiddleName *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName   string     `db:"last_name" json:"last_name"`
	DOB        *time.Time `db:"dob" json:"dob,omitempty"`
	Gender     *string    `db:"gender" json:"gender,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Student represents a learner registered in the institution.
type Student struct {
	ID            string     `db:"id" json:"id"`
	PersonID      string     `db:"person_id" json:"person_id"`
	AdmissionNo   string     `db:"admission_no" json:"admission_no"`
	AdmissionDate time.Time  `db:"admission_date" json:"admission_date"`
	Active        bool       `db:"active" json:"active"`
	DeletedAt     *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins a student with person fields and the current active
// enrollment, when one exists.
type StudentDetail struct {
	Student
	FirstName  string  `db:"first_name" json:"first_name"`
	MiddleName *string `db:"middle_name" json:"middle_name,omitempty"`
	LastName   string  `db:"last_name" json:"last_name"`

	EnrollmentID   *string `db:"enrollment_id" json:"enrollment_id,omitempty"`
	RollNumber     *int    `db:"roll_number" json:"roll_number,omitempty"`
	ClassCode      *string `db:"class_code" json:"class_code,omitempty"`
	SectionName    *string `db:"section_name" json:"section_name,omitempty"`
	ClassSectionID *string `db:"class_section_id" json:"class_section_id,omitempty"`
	AcademicYearID *string `db:"academic_year_id" json:"academic_year_id,omitempty"`
}

// Guardian links a person to a student with a relation label.
type Guardian struct {
	ID        string `db:"id" json:"id"`
	PersonID  string `db:"person_id" json:"person_id"`
	StudentID string `db:"student_id" json:"student_id"`
	Relation  string `db:"relation" json:"relation"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search         string
	ClassSectionID string
	AcademicYearID string
	Active         *bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
