package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/school-api/internal/models"
)

// NoticeRepository handles persistence of notices.
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository constructs the repository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// List returns published notices, newest first.
func (r *NoticeRepository) List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []interface{}

	if filter.Audience != "" {
		args = append(args, filter.Audience)
		conditions = append(conditions, fmt.Sprintf("(audience = $%d OR audience = 'all')", len(args)))
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, title, body, audience, publish_at, created_by, deleted_at, created_at, updated_at
        FROM notices%s ORDER BY publish_at DESC LIMIT %d OFFSET %d`, clause, size, offset)

	var notices []models.Notice
	if err := r.db.SelectContext(ctx, &notices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notices%s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notices: %w", err)
	}
	return notices, total, nil
}

// FindByID returns a notice.
func (r *NoticeRepository) FindByID(ctx context.Context, id string) (*models.Notice, error) {
	const query = `SELECT id, title, body, audience, publish_at, created_by, deleted_at, created_at, updated_at
        FROM notices WHERE id = $1 AND deleted_at IS NULL`
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		return nil, err
	}
	return &notice, nil
}

// Create persists a new notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	const query = `INSERT INTO notices (id, title, body, audience, publish_at, created_by)
        VALUES (:id, :title, :body, :audience, :publish_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

// Update modifies a notice.
func (r *NoticeRepository) Update(ctx context.Context, notice *models.Notice) error {
	const query = `UPDATE notices SET title = :title, body = :body, audience = :audience,
        publish_at = :publish_at, updated_at = now() WHERE id = :id AND deleted_at IS NULL`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	return nil
}

// SoftDelete marks a notice deleted.
func (r *NoticeRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE notices SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return nil
}
