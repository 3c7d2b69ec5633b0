package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	appErrors "github.com/classbridge/school-api/pkg/errors"
)

type mockRosterRepo struct {
	roster []models.RosterEntry
	calls  int
}

func (m *mockRosterRepo) ListRoster(ctx context.Context, scope models.RollScope) ([]models.RosterEntry, error) {
	m.calls++
	return m.roster, nil
}

type mockRosterCache struct {
	entries map[string][]byte
	sets    map[string][]byte
	deleted []string
}

func (m *mockRosterCache) Get(ctx context.Context, key string, dest interface{}) error {
	if raw, ok := m.entries[key]; ok {
		return json.Unmarshal(raw, dest)
	}
	return appErrors.ErrCacheMiss
}

func (m *mockRosterCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.sets == nil {
		m.sets = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets[key] = raw
	return nil
}

func (m *mockRosterCache) Delete(ctx context.Context, keys ...string) error {
	m.deleted = append(m.deleted, keys...)
	return nil
}

func rollPtr(n int) *int { return &n }

func sampleRoster() []models.RosterEntry {
	return []models.RosterEntry{
		{EnrollmentID: "e1", StudentID: "s1", AdmissionNo: "ADM-001", FirstName: "Aaron", LastName: "Young", RollNumber: rollPtr(1)},
		{EnrollmentID: "e2", StudentID: "s2", AdmissionNo: "ADM-002", FirstName: "Bobby", LastName: "Brown", RollNumber: rollPtr(2)},
	}
}

func TestRosterServiceGetCachesResult(t *testing.T) {
	repo := &mockRosterRepo{roster: sampleRoster()}
	cache := &mockRosterCache{}
	svc := NewRosterService(repo, cache, &mockSectionReader{}, nil, time.Minute, zap.NewNop())

	scope := models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"}
	roster, err := svc.Get(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, 1, repo.calls)
	assert.Contains(t, cache.sets, "roster:cs-1:ay-1")
}

func TestRosterServiceGetServesFromCache(t *testing.T) {
	cached, err := json.Marshal(sampleRoster())
	require.NoError(t, err)

	repo := &mockRosterRepo{}
	cache := &mockRosterCache{entries: map[string][]byte{"roster:cs-1:ay-1": cached}}
	svc := NewRosterService(repo, cache, &mockSectionReader{}, nil, time.Minute, zap.NewNop())

	roster, err := svc.Get(context.Background(), models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"})
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, 0, repo.calls)
}

func TestRosterServiceGetRequiresScope(t *testing.T) {
	svc := NewRosterService(&mockRosterRepo{}, nil, &mockSectionReader{}, nil, time.Minute, zap.NewNop())

	_, err := svc.Get(context.Background(), models.RollScope{ClassSectionID: "cs-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRosterServiceInvalidate(t *testing.T) {
	cache := &mockRosterCache{}
	svc := NewRosterService(&mockRosterRepo{}, cache, &mockSectionReader{}, nil, time.Minute, zap.NewNop())

	svc.Invalidate(context.Background(), models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"})
	assert.Equal(t, []string{"roster:cs-1:ay-1"}, cache.deleted)
}

func TestRosterServiceExportCSV(t *testing.T) {
	repo := &mockRosterRepo{roster: sampleRoster()}
	sections := &mockSectionReader{sections: map[string]*models.ClassSectionDetail{
		"cs-1": {
			ClassSection:     models.ClassSection{ID: "cs-1", AcademicYearID: "ay-1"},
			ClassCode:        "X",
			SectionName:      "A",
			AcademicYearCode: "2026-27",
		},
	}}
	svc := NewRosterService(repo, nil, sections, nil, time.Minute, zap.NewNop())

	payload, filename, err := svc.ExportCSV(context.Background(), models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"})
	require.NoError(t, err)
	assert.Equal(t, "roster-x-a-2026-27.csv", filename)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Roll,Admission No,Name", lines[0])
	assert.Equal(t, "1,ADM-001,Aaron Young", lines[1])
	assert.Equal(t, "2,ADM-002,Bobby Brown", lines[2])
}

func TestRosterServiceExportPDF(t *testing.T) {
	repo := &mockRosterRepo{roster: sampleRoster()}
	svc := NewRosterService(repo, nil, &mockSectionReader{}, nil, time.Minute, zap.NewNop())

	payload, filename, err := svc.ExportPDF(context.Background(), models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"})
	require.NoError(t, err)
	assert.Equal(t, "roster.pdf", filename)
	assert.True(t, len(payload) > 0)
}
