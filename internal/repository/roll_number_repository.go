package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classbridge/school-api/internal/models"
)

// RollNumberRepository owns the read-sort-write cycle that keeps roll numbers
// dense within a scope. The ordering logic lives in models.BuildRollAssignments;
// this repository contributes the transactional discipline around it.
type RollNumberRepository struct {
	db *sqlx.DB
}

// NewRollNumberRepository constructs the repository.
func NewRollNumberRepository(db *sqlx.DB) *RollNumberRepository {
	return &RollNumberRepository{db: db}
}

const qualifyingMembersQuery = `SELECT se.id AS enrollment_id, p.first_name, p.last_name
        FROM student_enrollments se
        JOIN students s ON s.id = se.student_id
        JOIN persons p ON p.id = s.person_id
        WHERE se.class_section_id = $1
          AND se.academic_year_id = $2
          AND se.status = $3
          AND se.deleted_at IS NULL
          AND s.deleted_at IS NULL`

// RecalculateScope reassigns the dense range 1..N to the qualifying
// enrollments of one scope and returns N. Concurrent recalculations of the
// same scope serialize on a per-scope advisory lock held for the transaction;
// different scopes proceed independently.
func (r *RollNumberRepository) RecalculateScope(ctx context.Context, scope models.RollScope) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin recalculation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, scope.Key()); err != nil {
		return 0, fmt.Errorf("acquire scope lock: %w", err)
	}

	var members []models.ScopeMember
	if err = tx.SelectContext(ctx, &members, qualifyingMembersQuery,
		scope.ClassSectionID, scope.AcademicYearID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("load scope members: %w", err)
	}

	assignments := models.BuildRollAssignments(members)

	// Clear every number held in the scope first, so the dense reassignment
	// can never trip uq_section_roll against a stale value.
	if _, err = tx.ExecContext(ctx,
		`UPDATE student_enrollments SET roll_number = NULL, updated_at = now()
         WHERE class_section_id = $1 AND academic_year_id = $2 AND roll_number IS NOT NULL`,
		scope.ClassSectionID, scope.AcademicYearID); err != nil {
		return 0, fmt.Errorf("clear scope rolls: %w", err)
	}

	if len(assignments) > 0 {
		ids := make(pq.StringArray, len(assignments))
		numbers := make(pq.Int64Array, len(assignments))
		for i, a := range assignments {
			ids[i] = a.EnrollmentID
			numbers[i] = int64(a.RollNumber)
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE student_enrollments AS se
             SET roll_number = v.rn, updated_at = now()
             FROM (SELECT unnest($1::uuid[]) AS id, unnest($2::int[]) AS rn) v
             WHERE se.id = v.id`,
			ids, numbers); err != nil {
			return 0, fmt.Errorf("assign scope rolls: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit recalculation: %w", err)
	}
	return len(assignments), nil
}
