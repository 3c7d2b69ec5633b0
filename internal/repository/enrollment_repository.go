package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/school-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments. Roll numbers are
// written only by RollNumberRepository; everything else on the row is managed
// here.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `e.id, e.student_id, e.class_section_id, e.academic_year_id, e.roll_number,
        e.status, e.start_date, e.end_date, e.created_by, e.deleted_at, e.created_at, e.updated_at,
        TRIM(CONCAT(p.first_name, ' ', p.last_name)) AS student_name, s.admission_no,
        c.code AS class_code, sec.name AS section_name, ay.code AS academic_year_code`

const enrollmentDetailJoins = `FROM student_enrollments e
JOIN students s ON s.id = e.student_id
JOIN persons p ON p.id = s.person_id
JOIN class_sections cs ON cs.id = e.class_section_id
JOIN classes c ON c.id = cs.class_id
JOIN sections sec ON sec.id = cs.section_id
JOIN academic_years ay ON ay.id = e.academic_year_id`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	conditions := []string{"e.deleted_at IS NULL"}
	var args []interface{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)))
	}
	if filter.ClassSectionID != "" {
		args = append(args, filter.ClassSectionID)
		conditions = append(conditions, fmt.Sprintf("e.class_section_id = $%d", len(args)))
	}
	if filter.AcademicYearID != "" {
		args = append(args, filter.AcademicYearID)
		conditions = append(conditions, fmt.Sprintf("e.academic_year_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)))
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"start_date":   "e.start_date",
		"roll_number":  "e.roll_number",
		"student_name": "p.first_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d",
		enrollmentDetailColumns, enrollmentDetailJoins, clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", enrollmentDetailJoins, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, class_section_id, academic_year_id, roll_number, status,
        start_date, end_date, created_by, deleted_at, created_at, updated_at
        FROM student_enrollments WHERE id = $1 AND deleted_at IS NULL`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.id = $1", enrollmentDetailColumns, enrollmentDetailJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActiveForYear reports whether the student already holds an active,
// non-deleted enrollment anywhere in the academic year. At most one active
// enrollment per (student, year) is allowed.
func (r *EnrollmentRepository) ExistsActiveForYear(ctx context.Context, studentID, academicYearID, excludeID string) (bool, error) {
	query := `SELECT 1 FROM student_enrollments
        WHERE student_id = $1 AND academic_year_id = $2 AND status = $3 AND deleted_at IS NULL`
	args := []interface{}{studentID, academicYearID, models.EnrollmentStatusActive}
	if excludeID != "" {
		args = append(args, excludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record. Roll number starts unset; the
// recalculator fills it in after commit.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	if enrollment.StartDate.IsZero() {
		enrollment.StartDate = time.Now().UTC()
	}
	const query = `INSERT INTO student_enrollments (id, student_id, class_section_id, academic_year_id, status, start_date, end_date, created_by)
        VALUES (:id, :student_id, :class_section_id, :academic_year_id, :status, :start_date, :end_date, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Transfer moves an enrollment to another class section within the same
// academic year. The stale roll number is left in place until the next
// recalculation of each affected scope.
func (r *EnrollmentRepository) Transfer(ctx context.Context, id, classSectionID string) error {
	const query = `UPDATE student_enrollments
        SET class_section_id = $2, status = $3, end_date = NULL, updated_at = now()
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, classSectionID, models.EnrollmentStatusActive); err != nil {
		return fmt.Errorf("transfer enrollment: %w", err)
	}
	return nil
}

// UpdateStatus updates status and end_date for an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, endDate *time.Time) error {
	const query = `UPDATE student_enrollments SET status = $2, end_date = $3, updated_at = now() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, endDate); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// SoftDelete marks the enrollment deleted, excluding it from future
// recalculations without touching its roll number.
func (r *EnrollmentRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE student_enrollments SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// ListRoster returns the active members of a scope ordered by roll number,
// unnumbered rows last.
func (r *EnrollmentRepository) ListRoster(ctx context.Context, scope models.RollScope) ([]models.RosterEntry, error) {
	const query = `SELECT e.id AS enrollment_id, e.student_id, s.admission_no,
        p.first_name, p.middle_name, p.last_name, e.roll_number
        FROM student_enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN persons p ON p.id = s.person_id
        WHERE e.class_section_id = $1 AND e.academic_year_id = $2
          AND e.status = $3 AND e.deleted_at IS NULL AND s.deleted_at IS NULL
        ORDER BY e.roll_number ASC NULLS LAST, p.first_name ASC, p.last_name ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, scope.ClassSectionID, scope.AcademicYearID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return roster, nil
}
