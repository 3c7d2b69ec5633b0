package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	appErrors "github.com/classbridge/school-api/pkg/errors"
)

type rollNumberRepository interface {
	RecalculateScope(ctx context.Context, scope models.RollScope) (int, error)
}

type classSectionResolver interface {
	Resolve(ctx context.Context, classID, sectionID, academicYearID string) (*models.ClassSection, error)
}

type rosterInvalidator interface {
	Invalidate(ctx context.Context, scope models.RollScope)
}

type recalcObserver interface {
	ObserveRecalculation(outcome string, assigned int, duration time.Duration)
}

// RollNumberService reassigns dense, gapless roll numbers within a scope.
// Recalculation is idempotent: with an unchanged qualifying set it always
// produces the identical assignment.
type RollNumberService struct {
	repo     rollNumberRepository
	sections classSectionResolver
	roster   rosterInvalidator
	metrics  recalcObserver
	logger   *zap.Logger
}

// NewRollNumberService constructs RollNumberService. roster and metrics may
// be nil when cache invalidation or instrumentation is not wanted.
func NewRollNumberService(repo rollNumberRepository, sections classSectionResolver, roster rosterInvalidator, metrics recalcObserver, logger *zap.Logger) *RollNumberService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RollNumberService{repo: repo, sections: sections, roster: roster, metrics: metrics, logger: logger}
}

// Recalculate runs one full read-sort-write pass over the scope. A failure
// leaves the previous roll numbers in place; the error is returned for the
// caller to log or surface, never partially applied.
func (s *RollNumberService) Recalculate(ctx context.Context, scope models.RollScope) error {
	if scope.ClassSectionID == "" || scope.AcademicYearID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "recalculation scope is incomplete")
	}

	start := time.Now()
	count, err := s.repo.RecalculateScope(ctx, scope)
	if err != nil {
		s.observe("failure", 0, time.Since(start))
		if isConstraintError(err) {
			s.logger.Error("roll recalculation hit a store constraint",
				zap.String("scope", scope.Key()), zap.Error(err))
			return appErrors.Wrap(err, appErrors.ErrConstraintViolation.Code, appErrors.ErrConstraintViolation.Status, "roll assignment violated a constraint")
		}
		return appErrors.Wrap(err, appErrors.ErrRecalculation.Code, appErrors.ErrRecalculation.Status, "failed to recalculate roll numbers")
	}

	s.observe("success", count, time.Since(start))
	s.logger.Info("roll numbers recalculated",
		zap.String("class_section_id", scope.ClassSectionID),
		zap.String("academic_year_id", scope.AcademicYearID),
		zap.Int("assigned", count))

	if s.roster != nil {
		s.roster.Invalidate(ctx, scope)
	}
	return nil
}

// RecalculateSection resolves a (class, section, year) triple to its scope
// and recalculates it synchronously. Backs the manual trigger endpoint.
func (s *RollNumberService) RecalculateSection(ctx context.Context, classID, sectionID, academicYearID string) error {
	if classID == "" || sectionID == "" || academicYearID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "class_id, section_id and academic_year_id are required")
	}
	cs, err := s.sections.Resolve(ctx, classID, sectionID, academicYearID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve class section")
	}
	return s.Recalculate(ctx, models.RollScope{ClassSectionID: cs.ID, AcademicYearID: academicYearID})
}

func (s *RollNumberService) observe(outcome string, assigned int, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveRecalculation(outcome, assigned, duration)
	}
}

func isConstraintError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// unique_violation, foreign_key_violation
		return pqErr.Code == "23505" || pqErr.Code == "23503"
	}
	return false
}
