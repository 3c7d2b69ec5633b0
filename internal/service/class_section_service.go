package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	appErrors "github.com/classbridge/school-api/pkg/errors"
)

type classSectionRepository interface {
	FindByID(ctx context.Context, id string) (*models.ClassSectionDetail, error)
	Resolve(ctx context.Context, classID, sectionID, academicYearID string) (*models.ClassSection, error)
	ListByYear(ctx context.Context, academicYearID string) ([]models.ClassSectionDetail, error)
	Create(ctx context.Context, cs *models.ClassSection) error
}

// CreateClassSectionRequest maps a class and section onto an academic year.
type CreateClassSectionRequest struct {
	ClassID        string `json:"class_id" validate:"required"`
	SectionID      string `json:"section_id" validate:"required"`
	AcademicYearID string `json:"academic_year_id" validate:"required"`
}

// ClassSectionService manages class/section/year mappings.
type ClassSectionService struct {
	repo      classSectionRepository
	years     academicYearReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassSectionService constructs ClassSectionService.
func NewClassSectionService(repo classSectionRepository, years academicYearReader, validate *validator.Validate, logger *zap.Logger) *ClassSectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassSectionService{repo: repo, years: years, validator: validate, logger: logger}
}

// ListByYear returns the mappings of one academic year.
func (s *ClassSectionService) ListByYear(ctx context.Context, academicYearID string) ([]models.ClassSectionDetail, error) {
	if academicYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic_year_id is required")
	}
	sections, err := s.repo.ListByYear(ctx, academicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class sections")
	}
	return sections, nil
}

// Get returns one mapping with display names.
func (s *ClassSectionService) Get(ctx context.Context, id string) (*models.ClassSectionDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class section")
	}
	return detail, nil
}

// Create registers a new class-section mapping for a year. The pair is unique
// per year; a duplicate surfaces as a conflict.
func (s *ClassSectionService) Create(ctx context.Context, req CreateClassSectionRequest) (*models.ClassSectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class section payload")
	}
	if _, err := s.years.FindByID(ctx, req.AcademicYearID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if _, err := s.repo.Resolve(ctx, req.ClassID, req.SectionID, req.AcademicYearID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class section already mapped for this academic year")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate class section")
	}

	cs := &models.ClassSection{
		ClassID:        req.ClassID,
		SectionID:      req.SectionID,
		AcademicYearID: req.AcademicYearID,
	}
	if err := s.repo.Create(ctx, cs); err != nil {
		if isConstraintError(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class section already mapped for this academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class section")
	}
	return s.repo.FindByID(ctx, cs.ID)
}
