package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	"github.com/classbridge/school-api/internal/service"
	"github.com/classbridge/school-api/pkg/response"
)

type rosterRepoMock struct {
	roster []models.RosterEntry
	called bool
}

func (m *rosterRepoMock) ListRoster(ctx context.Context, scope models.RollScope) ([]models.RosterEntry, error) {
	m.called = true
	return m.roster, nil
}

type sectionReaderMock struct{}

func (m *sectionReaderMock) FindByID(ctx context.Context, id string) (*models.ClassSectionDetail, error) {
	return &models.ClassSectionDetail{
		ClassSection:     models.ClassSection{ID: id, AcademicYearID: "ay-1"},
		ClassCode:        "X",
		SectionName:      "A",
		AcademicYearCode: "2026-27",
	}, nil
}

func newRosterHandler(repo *rosterRepoMock) *RosterHandler {
	svc := service.NewRosterService(repo, nil, &sectionReaderMock{}, nil, time.Minute, zap.NewNop())
	return NewRosterHandler(svc)
}

func TestRosterHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	one := 1
	repo := &rosterRepoMock{roster: []models.RosterEntry{
		{EnrollmentID: "e1", StudentID: "s1", AdmissionNo: "ADM-001", FirstName: "Aaron", LastName: "Young", RollNumber: &one},
	}}
	handler := newRosterHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/roster?classSectionId=cs-1&academicYearId=ay-1", nil)
	c.Request = req

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, repo.called)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
}

func TestRosterHandlerGetMissingScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRosterHandler(&rosterRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/roster?classSectionId=cs-1", nil)
	c.Request = req

	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRosterHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	one := 1
	repo := &rosterRepoMock{roster: []models.RosterEntry{
		{EnrollmentID: "e1", StudentID: "s1", AdmissionNo: "ADM-001", FirstName: "Aaron", LastName: "Young", RollNumber: &one},
	}}
	handler := newRosterHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/roster/export?classSectionId=cs-1&academicYearId=ay-1&format=csv", nil)
	c.Request = req

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "roster-x-a-2026-27.csv")
	assert.Contains(t, w.Body.String(), "ADM-001")
}

func TestRosterHandlerExportUnknownFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRosterHandler(&rosterRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/roster/export?classSectionId=cs-1&academicYearId=ay-1&format=xml", nil)
	c.Request = req

	handler.Export(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
