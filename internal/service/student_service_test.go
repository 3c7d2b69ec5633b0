package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	"github.com/classbridge/school-api/internal/repository"
	appErrors "github.com/classbridge/school-api/pkg/errors"
)

type mockStudentRepo struct {
	details      map[string]*models.StudentDetail
	admissionNos map[string]bool
	composite    *models.Enrollment
	guardians    []repository.GuardianInput
	createErr    error
	updated      bool
	deleted      []string
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if d, ok := m.details[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByAdmissionNo(ctx context.Context, admissionNo, excludeID string) (bool, error) {
	return m.admissionNos[admissionNo], nil
}

func (m *mockStudentRepo) CreateComposite(ctx context.Context, person *models.Person, student *models.Student, guardians []repository.GuardianInput, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	student.ID = "stu-new"
	m.composite = enrollment
	m.guardians = guardians
	if m.details == nil {
		m.details = make(map[string]*models.StudentDetail)
	}
	m.details["stu-new"] = &models.StudentDetail{
		Student:   *student,
		FirstName: person.FirstName,
		LastName:  person.LastName,
	}
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student, person *models.Person) error {
	m.updated = true
	return nil
}

func (m *mockStudentRepo) SoftDelete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func TestStudentServiceCreateWithEnrollmentDispatchesScope(t *testing.T) {
	repo := &mockStudentRepo{}
	sections := &mockSectionReader{sections: map[string]*models.ClassSectionDetail{"cs-1": sectionDetail("cs-1", "ay-1")}}
	trigger := &mockRollTrigger{}
	svc := NewStudentService(repo, sections, &mockYearReader{}, trigger, validator.New(), zap.NewNop())

	detail, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName:   "Aaron",
		LastName:    "Young",
		AdmissionNo: "ADM-001",
		Guardians:   []GuardianRequest{{FirstName: "Mia", LastName: "Young", Relation: "mother"}},
		Enrollment:  &InitialEnrollmentRequest{ClassSectionID: "cs-1", AcademicYearID: "ay-1"},
	})
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.NotNil(t, repo.composite)
	require.Len(t, repo.guardians, 1)

	require.Len(t, trigger.scopes, 1)
	assert.Equal(t, models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"}, trigger.scopes[0])
}

func TestStudentServiceCreateWithoutEnrollment(t *testing.T) {
	repo := &mockStudentRepo{}
	trigger := &mockRollTrigger{}
	svc := NewStudentService(repo, &mockSectionReader{}, &mockYearReader{}, trigger, validator.New(), zap.NewNop())

	detail, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName:   "Aaron",
		LastName:    "Young",
		AdmissionNo: "ADM-001",
	})
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Nil(t, repo.composite)
	assert.Empty(t, trigger.scopes)
}

func TestStudentServiceCreateSucceedsWithoutRollTrigger(t *testing.T) {
	repo := &mockStudentRepo{}
	sections := &mockSectionReader{sections: map[string]*models.ClassSectionDetail{"cs-1": sectionDetail("cs-1", "ay-1")}}
	svc := NewStudentService(repo, sections, &mockYearReader{}, nil, validator.New(), zap.NewNop())

	detail, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName:   "Aaron",
		LastName:    "Young",
		AdmissionNo: "ADM-001",
		Enrollment:  &InitialEnrollmentRequest{ClassSectionID: "cs-1", AcademicYearID: "ay-1"},
	})
	require.NoError(t, err)
	require.NotNil(t, detail)
}

func TestStudentServiceCreateDuplicateAdmissionNo(t *testing.T) {
	repo := &mockStudentRepo{admissionNos: map[string]bool{"ADM-001": true}}
	svc := NewStudentService(repo, &mockSectionReader{}, &mockYearReader{}, &mockRollTrigger{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName:   "Aaron",
		LastName:    "Young",
		AdmissionNo: "ADM-001",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateNoDispatchOnFailure(t *testing.T) {
	repo := &mockStudentRepo{createErr: errors.New("insert failed")}
	sections := &mockSectionReader{sections: map[string]*models.ClassSectionDetail{"cs-1": sectionDetail("cs-1", "ay-1")}}
	trigger := &mockRollTrigger{}
	svc := NewStudentService(repo, sections, &mockYearReader{}, trigger, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		FirstName:   "Aaron",
		LastName:    "Young",
		AdmissionNo: "ADM-001",
		Enrollment:  &InitialEnrollmentRequest{ClassSectionID: "cs-1", AcademicYearID: "ay-1"},
	})
	require.Error(t, err)
	assert.Empty(t, trigger.scopes)
}

func TestStudentServiceUpdateRenameDispatchesScope(t *testing.T) {
	csID, ayID := "cs-1", "ay-1"
	repo := &mockStudentRepo{details: map[string]*models.StudentDetail{
		"stu-1": {
			Student:        models.Student{ID: "stu-1", PersonID: "p-1", AdmissionNo: "ADM-001", Active: true},
			FirstName:      "Aaron",
			LastName:       "Young",
			ClassSectionID: &csID,
			AcademicYearID: &ayID,
		},
	}}
	trigger := &mockRollTrigger{}
	svc := NewStudentService(repo, &mockSectionReader{}, &mockYearReader{}, trigger, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "stu-1", UpdateStudentRequest{
		FirstName:   "Aaronn",
		LastName:    "Young",
		AdmissionNo: "ADM-001",
	})
	require.NoError(t, err)
	assert.True(t, repo.updated)
	require.Len(t, trigger.scopes, 1)
	assert.Equal(t, models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"}, trigger.scopes[0])
}

func TestStudentServiceDeactivateDirtiesScope(t *testing.T) {
	csID, ayID := "cs-1", "ay-1"
	repo := &mockStudentRepo{details: map[string]*models.StudentDetail{
		"stu-1": {
			Student:        models.Student{ID: "stu-1", Active: true},
			ClassSectionID: &csID,
			AcademicYearID: &ayID,
		},
	}}
	trigger := &mockRollTrigger{}
	svc := NewStudentService(repo, &mockSectionReader{}, &mockYearReader{}, trigger, validator.New(), zap.NewNop())

	err := svc.Deactivate(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Contains(t, repo.deleted, "stu-1")
	require.Len(t, trigger.scopes, 1)
}
