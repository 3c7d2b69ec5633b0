package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/school-api/internal/models"
)

// ClassSectionRepository resolves and manages class/section/year mappings.
type ClassSectionRepository struct {
	db *sqlx.DB
}

// NewClassSectionRepository constructs the repository.
func NewClassSectionRepository(db *sqlx.DB) *ClassSectionRepository {
	return &ClassSectionRepository{db: db}
}

const classSectionDetailQuery = `SELECT cs.id, cs.class_id, cs.section_id, cs.academic_year_id, cs.created_at,
        c.code AS class_code, c.name AS class_name, sec.name AS section_name, ay.code AS academic_year_code
        FROM class_sections cs
        JOIN classes c ON c.id = cs.class_id
        JOIN sections sec ON sec.id = cs.section_id
        JOIN academic_years ay ON ay.id = cs.academic_year_id`

// FindByID returns a class-section mapping.
func (r *ClassSectionRepository) FindByID(ctx context.Context, id string) (*models.ClassSectionDetail, error) {
	query := classSectionDetailQuery + " WHERE cs.id = $1"
	var detail models.ClassSectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Resolve locates the mapping for a (class, section, year) triple.
func (r *ClassSectionRepository) Resolve(ctx context.Context, classID, sectionID, academicYearID string) (*models.ClassSection, error) {
	const query = `SELECT id, class_id, section_id, academic_year_id, created_at FROM class_sections
        WHERE class_id = $1 AND section_id = $2 AND academic_year_id = $3`
	var cs models.ClassSection
	if err := r.db.GetContext(ctx, &cs, query, classID, sectionID, academicYearID); err != nil {
		return nil, err
	}
	return &cs, nil
}

// ListByYear returns all mappings of an academic year.
func (r *ClassSectionRepository) ListByYear(ctx context.Context, academicYearID string) ([]models.ClassSectionDetail, error) {
	query := classSectionDetailQuery + " WHERE cs.academic_year_id = $1 ORDER BY c.code ASC, sec.name ASC"
	var sections []models.ClassSectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, academicYearID); err != nil {
		return nil, fmt.Errorf("list class sections: %w", err)
	}
	return sections, nil
}

// Create persists a new class-section mapping for a year.
func (r *ClassSectionRepository) Create(ctx context.Context, cs *models.ClassSection) error {
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	const query = `INSERT INTO class_sections (id, class_id, section_id, academic_year_id)
        VALUES (:id, :class_id, :section_id, :academic_year_id)`
	if _, err := r.db.NamedExecContext(ctx, query, cs); err != nil {
		return fmt.Errorf("create class section: %w", err)
	}
	return nil
}
