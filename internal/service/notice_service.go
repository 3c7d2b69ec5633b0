package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	appErrors "github.com/classbridge/school-api/pkg/errors"
)

type noticeRepository interface {
	List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error)
	FindByID(ctx context.Context, id string) (*models.Notice, error)
	Create(ctx context.Context, notice *models.Notice) error
	Update(ctx context.Context, notice *models.Notice) error
	SoftDelete(ctx context.Context, id string) error
}

// NoticeRequest describes notice creation and update payloads.
type NoticeRequest struct {
	Title     string     `json:"title" validate:"required"`
	Body      string     `json:"body" validate:"required"`
	Audience  string     `json:"audience" validate:"required,oneof=all students teachers parents staff"`
	PublishAt *time.Time `json:"publish_at,omitempty"`
	CreatedBy string     `json:"-"`
}

// NoticeService manages school notices.
type NoticeService struct {
	repo      noticeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNoticeService constructs NoticeService.
func NewNoticeService(repo noticeRepository, validate *validator.Validate, logger *zap.Logger) *NoticeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoticeService{repo: repo, validator: validate, logger: logger}
}

// List returns notices with pagination metadata.
func (s *NoticeService) List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, *models.Pagination, error) {
	notices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return notices, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one notice.
func (s *NoticeService) Get(ctx context.Context, id string) (*models.Notice, error) {
	notice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	return notice, nil
}

// Create publishes a notice.
func (s *NoticeService) Create(ctx context.Context, req NoticeRequest) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}
	notice := &models.Notice{
		Title:    req.Title,
		Body:     req.Body,
		Audience: req.Audience,
	}
	if req.PublishAt != nil {
		notice.PublishAt = *req.PublishAt
	} else {
		notice.PublishAt = time.Now().UTC()
	}
	if req.CreatedBy != "" {
		notice.CreatedBy = &req.CreatedBy
	}
	if err := s.repo.Create(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notice")
	}
	return s.Get(ctx, notice.ID)
}

// Update modifies a notice.
func (s *NoticeService) Update(ctx context.Context, id string, req NoticeRequest) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}
	notice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	notice.Title = req.Title
	notice.Body = req.Body
	notice.Audience = req.Audience
	if req.PublishAt != nil {
		notice.PublishAt = *req.PublishAt
	}
	if err := s.repo.Update(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notice")
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes a notice.
func (s *NoticeService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notice")
	}
	return nil
}
