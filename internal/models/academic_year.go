package models

import "time"

// AcademicYear bounds one school year. Enrollments and roll numbers are
// always scoped to exactly one academic year.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
