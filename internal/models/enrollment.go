package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. Only active enrollments participate in roll
// numbering.
const (
	EnrollmentStatusActive      EnrollmentStatus = "active"
	EnrollmentStatusWithdrawn   EnrollmentStatus = "withdrawn"
	EnrollmentStatusTransferred EnrollmentStatus = "transferred"
	EnrollmentStatusCompleted   EnrollmentStatus = "completed"
)

// Enrollment captures a student's placement in a class section for one
// academic year. RollNumber is assigned exclusively by the recalculator and
// is never accepted from clients.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	ClassSectionID string           `db:"class_section_id" json:"class_section_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	RollNumber     *int             `db:"roll_number" json:"roll_number,omitempty"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	StartDate      time.Time        `db:"start_date" json:"start_date"`
	EndDate        *time.Time       `db:"end_date" json:"end_date,omitempty"`
	CreatedBy      *string          `db:"created_by" json:"created_by,omitempty"`
	DeletedAt      *time.Time       `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and placement info.
type EnrollmentDetail struct {
	Enrollment
	StudentName      string `db:"student_name" json:"student_name"`
	AdmissionNo      string `db:"admission_no" json:"admission_no"`
	ClassCode        string `db:"class_code" json:"class_code"`
	SectionName      string `db:"section_name" json:"section_name"`
	AcademicYearCode string `db:"academic_year_code" json:"academic_year_code"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID      string
	ClassSectionID string
	AcademicYearID string
	Status         EnrollmentStatus
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
