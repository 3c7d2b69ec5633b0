package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/school-api/internal/models"
)

func newRollRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRollNumberRepositoryRecalculateScope(t *testing.T) {
	db, mock, cleanup := newRollRepoMock(t)
	defer cleanup()
	repo := NewRollNumberRepository(db)

	scope := models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtextextended($1, 0))")).
		WithArgs(scope.Key()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Members arrive in arbitrary order; the repository must assign the dense
	// range in (first_name, last_name, id) order.
	rows := sqlmock.NewRows([]string{"enrollment_id", "first_name", "last_name"}).
		AddRow("e3", "Zack", "Adams").
		AddRow("e1", "Aaron", "Young").
		AddRow("e2", "Bobby", "Brown")
	mock.ExpectQuery("SELECT se.id AS enrollment_id, p.first_name, p.last_name").
		WithArgs("cs-1", "ay-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_enrollments SET roll_number = NULL")).
		WithArgs("cs-1", "ay-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	mock.ExpectExec(regexp.QuoteMeta("FROM (SELECT unnest($1::uuid[]) AS id, unnest($2::int[]) AS rn) v")).
		WithArgs(pq.StringArray{"e1", "e2", "e3"}, pq.Int64Array{1, 2, 3}).
		WillReturnResult(sqlmock.NewResult(0, 3))

	mock.ExpectCommit()

	count, err := repo.RecalculateScope(context.Background(), scope)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollNumberRepositoryRecalculateEmptyScope(t *testing.T) {
	db, mock, cleanup := newRollRepoMock(t)
	defer cleanup()
	repo := NewRollNumberRepository(db)

	scope := models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtextextended($1, 0))")).
		WithArgs(scope.Key()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT se.id AS enrollment_id, p.first_name, p.last_name").
		WithArgs("cs-1", "ay-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id", "first_name", "last_name"}))

	// Stale numbers are still cleared; no assignment statement runs.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_enrollments SET roll_number = NULL")).
		WithArgs("cs-1", "ay-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	count, err := repo.RecalculateScope(context.Background(), scope)
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRollNumberRepositoryRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRollRepoMock(t)
	defer cleanup()
	repo := NewRollNumberRepository(db)

	scope := models.RollScope{ClassSectionID: "cs-1", AcademicYearID: "ay-1"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtextextended($1, 0))")).
		WithArgs(scope.Key()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT se.id AS enrollment_id, p.first_name, p.last_name").
		WithArgs("cs-1", "ay-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id", "first_name", "last_name"}).
			AddRow("e1", "Aaron", "Young"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE student_enrollments SET roll_number = NULL")).
		WithArgs("cs-1", "ay-1").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.RecalculateScope(context.Background(), scope)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
