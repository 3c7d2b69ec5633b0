package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	appErrors "github.com/classbridge/school-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsActiveForYear(ctx context.Context, studentID, academicYearID, excludeID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Transfer(ctx context.Context, id, classSectionID string) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, endDate *time.Time) error
	SoftDelete(ctx context.Context, id string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type classSectionReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassSectionDetail, error)
}

type academicYearReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

// rollTrigger receives dirty scopes after the mutation that produced them has
// committed. Implementations must not fail the caller.
type rollTrigger interface {
	Dispatch(scope models.RollScope)
}

// EnrollStudentRequest describes enrollment creation.
type EnrollStudentRequest struct {
	StudentID      string     `json:"student_id" validate:"required"`
	ClassSectionID string     `json:"class_section_id" validate:"required"`
	AcademicYearID string     `json:"academic_year_id" validate:"required"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	CreatedBy      string     `json:"-"`
}

// TransferEnrollmentRequest describes a transfer payload.
type TransferEnrollmentRequest struct {
	TargetClassSectionID string `json:"target_class_section_id" validate:"required"`
}

// EnrollmentService orchestrates enrollment workflows. It never computes roll
// numbers itself; it identifies the scopes an operation dirtied and hands
// them to the roll trigger once the write has committed.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	sections  classSectionReader
	years     academicYearReader
	rolls     rollTrigger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, sections classSectionReader, years academicYearReader, rolls rollTrigger, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, sections: sections, years: years, rolls: rolls, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// Get returns one enrollment with context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Enroll places a student into a class section for an academic year. The new
// enrollment has no roll number until the scope's recalculation runs.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollStudentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student inactive")
	}
	section, err := s.sections.FindByID(ctx, req.ClassSectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class section")
	}
	if _, err := s.years.FindByID(ctx, req.AcademicYearID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if section.AcademicYearID != req.AcademicYearID {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "class section belongs to a different academic year")
	}

	// At most one active enrollment per (student, academic year).
	exists, err := s.repo.ExistsActiveForYear(ctx, req.StudentID, req.AcademicYearID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active enrollment for this academic year")
	}

	enrollment := &models.Enrollment{
		StudentID:      req.StudentID,
		ClassSectionID: req.ClassSectionID,
		AcademicYearID: req.AcademicYearID,
		Status:         models.EnrollmentStatusActive,
	}
	if req.StartDate != nil {
		enrollment.StartDate = *req.StartDate
	}
	if req.CreatedBy != "" {
		enrollment.CreatedBy = &req.CreatedBy
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.dirty(models.RollScope{ClassSectionID: req.ClassSectionID, AcademicYearID: req.AcademicYearID})

	detail, err := s.repo.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Transfer moves an active enrollment to another class section within the
// same academic year. Both the vacated and the receiving scope are dirtied.
func (s *EnrollmentService) Transfer(ctx context.Context, id string, req TransferEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment not active")
	}
	if enrollment.ClassSectionID == req.TargetClassSectionID {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "already in target class section")
	}
	target, err := s.sections.FindByID(ctx, req.TargetClassSectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target class section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target class section")
	}
	if target.AcademicYearID != enrollment.AcademicYearID {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "target class section belongs to a different academic year")
	}
	if err := s.repo.Transfer(ctx, id, req.TargetClassSectionID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer enrollment")
	}

	s.dirty(
		models.RollScope{ClassSectionID: enrollment.ClassSectionID, AcademicYearID: enrollment.AcademicYearID},
		models.RollScope{ClassSectionID: req.TargetClassSectionID, AcademicYearID: enrollment.AcademicYearID},
	)

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Withdraw marks an enrollment withdrawn. The stale roll number stays on the
// row but the member drops out of the scope's next recalculation.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment already inactive")
	}
	endDate := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusWithdrawn, &endDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}

	s.dirty(models.RollScope{ClassSectionID: enrollment.ClassSectionID, AcademicYearID: enrollment.AcademicYearID})

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Delete soft-deletes an enrollment and dirties its scope.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	s.dirty(models.RollScope{ClassSectionID: enrollment.ClassSectionID, AcademicYearID: enrollment.AcademicYearID})
	return nil
}

func (s *EnrollmentService) dirty(scopes ...models.RollScope) {
	if s.rolls == nil {
		return
	}
	for _, scope := range scopes {
		s.rolls.Dispatch(scope)
	}
}
