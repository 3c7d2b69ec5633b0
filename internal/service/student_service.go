package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	"github.com/classbridge/school-api/internal/repository"
	appErrors "github.com/classbridge/school-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByAdmissionNo(ctx context.Context, admissionNo, excludeID string) (bool, error)
	CreateComposite(ctx context.Context, person *models.Person, student *models.Student, guardians []repository.GuardianInput, enrollment *models.Enrollment) error
	Update(ctx context.Context, student *models.Student, person *models.Person) error
	SoftDelete(ctx context.Context, id string) error
}

// GuardianRequest describes one guardian in a student admission payload.
type GuardianRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Relation  string `json:"relation" validate:"required"`
}

// InitialEnrollmentRequest places the new student into a class section.
type InitialEnrollmentRequest struct {
	ClassSectionID string `json:"class_section_id" validate:"required"`
	AcademicYearID string `json:"academic_year_id" validate:"required"`
}

// CreateStudentRequest is the composite admission payload.
type CreateStudentRequest struct {
	FirstName     string                    `json:"first_name" validate:"required"`
	MiddleName    *string                   `json:"middle_name,omitempty"`
	LastName      string                    `json:"last_name" validate:"required"`
	DOB           *time.Time                `json:"dob,omitempty"`
	Gender        *string                   `json:"gender,omitempty"`
	AdmissionNo   string                    `json:"admission_no" validate:"required"`
	AdmissionDate *time.Time                `json:"admission_date,omitempty"`
	Guardians     []GuardianRequest         `json:"guardians,omitempty" validate:"dive"`
	Enrollment    *InitialEnrollmentRequest `json:"enrollment,omitempty"`
	CreatedBy     string                    `json:"-"`
}

// UpdateStudentRequest modifies person and student fields.
type UpdateStudentRequest struct {
	FirstName   string     `json:"first_name" validate:"required"`
	MiddleName  *string    `json:"middle_name,omitempty"`
	LastName    string     `json:"last_name" validate:"required"`
	DOB         *time.Time `json:"dob,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	AdmissionNo string     `json:"admission_no" validate:"required"`
	Active      *bool      `json:"active,omitempty"`
}

// StudentService orchestrates student admission and maintenance.
type StudentService struct {
	repo      studentRepository
	sections  classSectionReader
	years     academicYearReader
	rolls     rollTrigger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, sections classSectionReader, years academicYearReader, rolls rollTrigger, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, sections: sections, years: years, rolls: rolls, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student with enrollment context.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return detail, nil
}

// Create admits a student: person, student, guardians and the optional
// initial enrollment commit in one transaction. The affected scope is handed
// to the roll trigger only after that transaction has committed, so a failed
// or delayed recalculation never undoes the admission; the enrollment just
// shows no roll number until the scope heals.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.ExistsByAdmissionNo(ctx, req.AdmissionNo, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate admission number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already used")
	}

	var enrollment *models.Enrollment
	var dirtyScope *models.RollScope
	if req.Enrollment != nil {
		section, err := s.sections.FindByID(ctx, req.Enrollment.ClassSectionID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "class section not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class section")
		}
		if _, err := s.years.FindByID(ctx, req.Enrollment.AcademicYearID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
		}
		if section.AcademicYearID != req.Enrollment.AcademicYearID {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class section belongs to a different academic year")
		}
		enrollment = &models.Enrollment{
			ClassSectionID: req.Enrollment.ClassSectionID,
			AcademicYearID: req.Enrollment.AcademicYearID,
		}
		if req.CreatedBy != "" {
			enrollment.CreatedBy = &req.CreatedBy
		}
		dirtyScope = &models.RollScope{
			ClassSectionID: req.Enrollment.ClassSectionID,
			AcademicYearID: req.Enrollment.AcademicYearID,
		}
	}

	person := &models.Person{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		DOB:        req.DOB,
		Gender:     req.Gender,
	}
	student := &models.Student{AdmissionNo: req.AdmissionNo}
	if req.AdmissionDate != nil {
		student.AdmissionDate = *req.AdmissionDate
	}
	guardians := make([]repository.GuardianInput, 0, len(req.Guardians))
	for _, g := range req.Guardians {
		guardians = append(guardians, repository.GuardianInput{
			Person:   models.Person{FirstName: g.FirstName, LastName: g.LastName},
			Relation: g.Relation,
		})
	}

	if err := s.repo.CreateComposite(ctx, person, student, guardians, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	if dirtyScope != nil && s.rolls != nil {
		s.rolls.Dispatch(*dirtyScope)
	}

	detail, err := s.repo.FindByID(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student detail")
	}
	return detail, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByAdmissionNo(ctx, req.AdmissionNo, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate admission number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "admission number already used")
	}

	student := detail.Student
	student.AdmissionNo = req.AdmissionNo
	if req.Active != nil {
		student.Active = *req.Active
	}
	person := &models.Person{
		ID:         detail.PersonID,
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		DOB:        req.DOB,
		Gender:     req.Gender,
	}
	if err := s.repo.Update(ctx, &student, person); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	// A renamed student changes the scope ordering; re-number their section.
	if detail.ClassSectionID != nil && detail.AcademicYearID != nil &&
		(person.FirstName != detail.FirstName || person.LastName != detail.LastName) && s.rolls != nil {
		s.rolls.Dispatch(models.RollScope{ClassSectionID: *detail.ClassSectionID, AcademicYearID: *detail.AcademicYearID})
	}

	return s.repo.FindByID(ctx, id)
}

// Deactivate soft-deletes the student and dirties their active scope.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	if detail.ClassSectionID != nil && detail.AcademicYearID != nil && s.rolls != nil {
		s.rolls.Dispatch(models.RollScope{ClassSectionID: *detail.ClassSectionID, AcademicYearID: *detail.AcademicYearID})
	}
	return nil
}
