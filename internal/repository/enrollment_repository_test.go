package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/school-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryExistsActiveForYear(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM student_enrollments")).
		WithArgs("stu-1", "ay-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsActiveForYear(context.Background(), "stu-1", "ay-1", "")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActiveForYearNone(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM student_enrollments")).
		WithArgs("stu-1", "ay-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsActiveForYear(context.Background(), "stu-1", "ay-1", "")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActiveForYearExcludes(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND id <> $4")).
		WithArgs("stu-1", "ay-1", models.EnrollmentStatusActive, "enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsActiveForYear(context.Background(), "stu-1", "ay-1", "enr-1")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListRoster(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"enrollment_id", "student_id", "admission_no", "first_name", "middle_name", "last_name", "roll_number"}).
		AddRow("e1", "s1", "ADM-001", "Aaron", nil, "Young", 1).
		AddRow("e2", "s2", "ADM-002", "Bobby", nil, "Brown", 2).
		AddRow("e3", "s3", "ADM-003", "Cara", nil, "New", nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.roll_number ASC NULLS LAST")).
		WithArgs("cs-1", "ay-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	roster, err := repo.ListRoster(context.Background(), models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"})
	require.NoError(t, err)
	require.Len(t, roster, 3)
	assert.Equal(t, 1, *roster[0].RollNumber)
	assert.Nil(t, roster[2].RollNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryTransfer(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET class_section_id = $2, status = $3, end_date = NULL")).
		WithArgs("enr-1", "cs-2", models.EnrollmentStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Transfer(context.Background(), "enr-1", "cs-2")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs("enr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SoftDelete(context.Background(), "enr-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
