package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/school-api/internal/models"
)

// StudentRepository handles persistence of students and their person rows.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `s.id, s.person_id, s.admission_no, s.admission_date, s.active, s.deleted_at,
        s.created_at, s.updated_at, p.first_name, p.middle_name, p.last_name,
        e.id AS enrollment_id, e.roll_number, c.code AS class_code, sec.name AS section_name,
        e.class_section_id, e.academic_year_id`

const studentDetailJoins = `FROM students s
JOIN persons p ON p.id = s.person_id
LEFT JOIN student_enrollments e ON e.student_id = s.id AND e.status = 'active' AND e.deleted_at IS NULL
LEFT JOIN class_sections cs ON cs.id = e.class_section_id
LEFT JOIN classes c ON c.id = cs.class_id
LEFT JOIN sections sec ON sec.id = cs.section_id`

// List returns students with their current active enrollment context.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	conditions := []string{"s.deleted_at IS NULL"}
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(p.first_name ILIKE $%d OR p.last_name ILIKE $%d OR s.admission_no ILIKE $%d)", n, n, n))
	}
	if filter.ClassSectionID != "" {
		args = append(args, filter.ClassSectionID)
		conditions = append(conditions, fmt.Sprintf("e.class_section_id = $%d", len(args)))
	}
	if filter.AcademicYearID != "" {
		args = append(args, filter.AcademicYearID)
		conditions = append(conditions, fmt.Sprintf("e.academic_year_id = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)))
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":         "p.first_name",
		"admission_no": "s.admission_no",
		"created_at":   "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "p.first_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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
		studentDetailColumns, studentDetailJoins, clause, orderBy, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", studentDetailJoins, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with person and current-enrollment context.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1 AND s.deleted_at IS NULL", studentDetailColumns, studentDetailJoins)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByAdmissionNo checks admission number uniqueness.
func (r *StudentRepository) ExistsByAdmissionNo(ctx context.Context, admissionNo, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM students WHERE admission_no = $1 AND deleted_at IS NULL`
	args := []interface{}{admissionNo}
	if excludeID != "" {
		args = append(args, excludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check admission no: %w", err)
	}
	return count > 0, nil
}

// GuardianInput carries one guardian person + relation for composite creates.
type GuardianInput struct {
	Person   models.Person
	Relation string
}

// CreateComposite persists person, student, guardians and the optional
// initial enrollment in one transaction. Recalculation of the enrollment's
// scope is deliberately NOT part of this transaction; callers dispatch it
// after commit so a recalculation failure can never roll back the admission.
func (r *StudentRepository) CreateComposite(ctx context.Context, person *models.Person, student *models.Student, guardians []GuardianInput, enrollment *models.Enrollment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	if _, err = tx.NamedExecContext(ctx,
		`INSERT INTO persons (id, first_name, middle_name, last_name, dob, gender)
         VALUES (:id, :first_name, :middle_name, :last_name, :dob, :gender)`, person); err != nil {
		return fmt.Errorf("create person: %w", err)
	}

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.PersonID = person.ID
	if student.AdmissionDate.IsZero() {
		student.AdmissionDate = time.Now().UTC()
	}
	student.Active = true
	if _, err = tx.NamedExecContext(ctx,
		`INSERT INTO students (id, person_id, admission_no, admission_date, active)
         VALUES (:id, :person_id, :admission_no, :admission_date, :active)`, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	for i := range guardians {
		g := &guardians[i]
		if g.Person.ID == "" {
			g.Person.ID = uuid.NewString()
		}
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO persons (id, first_name, middle_name, last_name, dob, gender)
             VALUES (:id, :first_name, :middle_name, :last_name, :dob, :gender)`, &g.Person); err != nil {
			return fmt.Errorf("create guardian person: %w", err)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO guardians (id, person_id, student_id, relation) VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), g.Person.ID, student.ID, g.Relation); err != nil {
			return fmt.Errorf("create guardian: %w", err)
		}
	}

	if enrollment != nil {
		if enrollment.ID == "" {
			enrollment.ID = uuid.NewString()
		}
		enrollment.StudentID = student.ID
		enrollment.Status = models.EnrollmentStatusActive
		if enrollment.StartDate.IsZero() {
			enrollment.StartDate = student.AdmissionDate
		}
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO student_enrollments (id, student_id, class_section_id, academic_year_id, status, start_date, created_by)
             VALUES (:id, :student_id, :class_section_id, :academic_year_id, :status, :start_date, :created_by)`, enrollment); err != nil {
			return fmt.Errorf("create initial enrollment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create student: %w", err)
	}
	return nil
}

// Update modifies person and student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student, person *models.Person) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx,
		`UPDATE persons SET first_name = :first_name, middle_name = :middle_name,
         last_name = :last_name, dob = :dob, gender = :gender, updated_at = now()
         WHERE id = :id`, person); err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx,
		`UPDATE students SET admission_no = :admission_no, admission_date = :admission_date,
         active = :active, updated_at = now() WHERE id = :id`, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update student: %w", err)
	}
	return nil
}

// SoftDelete marks the student deleted. Enrollments are left in place; their
// joined student row no longer qualifies for roll numbering.
func (r *StudentRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE students SET deleted_at = now(), active = FALSE, updated_at = now()
        WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
