package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	appErrors "github.com/classbridge/school-api/pkg/errors"
)

type mockRollRepo struct {
	count  int
	err    error
	scopes []models.RollScope
}

func (m *mockRollRepo) RecalculateScope(ctx context.Context, scope models.RollScope) (int, error) {
	m.scopes = append(m.scopes, scope)
	return m.count, m.err
}

type mockResolver struct {
	section *models.ClassSection
	err     error
}

func (m *mockResolver) Resolve(ctx context.Context, classID, sectionID, academicYearID string) (*models.ClassSection, error) {
	return m.section, m.err
}

type mockInvalidator struct {
	scopes []models.RollScope
}

func (m *mockInvalidator) Invalidate(ctx context.Context, scope models.RollScope) {
	m.scopes = append(m.scopes, scope)
}

type mockRecalcObserver struct {
	outcomes []string
	assigned []int
}

func (m *mockRecalcObserver) ObserveRecalculation(outcome string, assigned int, duration time.Duration) {
	m.outcomes = append(m.outcomes, outcome)
	m.assigned = append(m.assigned, assigned)
}

func TestRollNumberServiceRecalculate(t *testing.T) {
	repo := &mockRollRepo{count: 5}
	roster := &mockInvalidator{}
	observer := &mockRecalcObserver{}
	svc := NewRollNumberService(repo, &mockResolver{}, roster, observer, zap.NewNop())

	scope := models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"}
	err := svc.Recalculate(context.Background(), scope)
	require.NoError(t, err)

	require.Len(t, repo.scopes, 1)
	assert.Equal(t, scope, repo.scopes[0])
	require.Len(t, roster.scopes, 1)
	assert.Equal(t, scope, roster.scopes[0])
	assert.Equal(t, []string{"success"}, observer.outcomes)
	assert.Equal(t, []int{5}, observer.assigned)
}

func TestRollNumberServiceRecalculateIncompleteScope(t *testing.T) {
	svc := NewRollNumberService(&mockRollRepo{}, &mockResolver{}, nil, nil, zap.NewNop())

	err := svc.Recalculate(context.Background(), models.RollScope{ClassSectionID: "cs-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRollNumberServiceRecalculateConstraintError(t *testing.T) {
	repo := &mockRollRepo{err: &pq.Error{Code: "23505"}}
	roster := &mockInvalidator{}
	svc := NewRollNumberService(repo, &mockResolver{}, roster, nil, zap.NewNop())

	err := svc.Recalculate(context.Background(), models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConstraintViolation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, roster.scopes)
}

func TestRollNumberServiceRecalculateGenericError(t *testing.T) {
	repo := &mockRollRepo{err: errors.New("connection reset")}
	svc := NewRollNumberService(repo, &mockResolver{}, nil, nil, zap.NewNop())

	err := svc.Recalculate(context.Background(), models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRecalculation.Code, appErrors.FromError(err).Code)
}

func TestRollNumberServiceRecalculateSection(t *testing.T) {
	repo := &mockRollRepo{}
	resolver := &mockResolver{section: &models.ClassSection{ID: "cs-9", AcademicYearID: "ay-1"}}
	svc := NewRollNumberService(repo, resolver, nil, nil, zap.NewNop())

	err := svc.RecalculateSection(context.Background(), "class-1", "sec-1", "ay-1")
	require.NoError(t, err)
	require.Len(t, repo.scopes, 1)
	assert.Equal(t, models.RollScope{ClassSectionID: "cs-9", AcademicYearID: "ay-1"}, repo.scopes[0])
}

func TestRollNumberServiceRecalculateSectionNotFound(t *testing.T) {
	svc := NewRollNumberService(&mockRollRepo{}, &mockResolver{err: sql.ErrNoRows}, nil, nil, zap.NewNop())

	err := svc.RecalculateSection(context.Background(), "class-1", "sec-1", "ay-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
