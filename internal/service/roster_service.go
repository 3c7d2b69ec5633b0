package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/school-api/internal/models"
	appErrors "github.com/classbridge/school-api/pkg/errors"
	"github.com/classbridge/school-api/pkg/export"
)

type rosterRepository interface {
	ListRoster(ctx context.Context, scope models.RollScope) ([]models.RosterEntry, error)
}

type rosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type cacheLookupObserver interface {
	RecordCacheLookup(hit bool)
}

// RosterService serves class-section rosters ordered by roll number. Reads
// are cached; every successful recalculation of a scope invalidates its
// entry, so a cached roster is never older than the scope's latest numbers.
type RosterService struct {
	repo     rosterRepository
	cache    rosterCache
	sections classSectionReader
	metrics  cacheLookupObserver
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	ttl      time.Duration
	logger   *zap.Logger
}

// NewRosterService constructs RosterService. cache and metrics may be nil.
func NewRosterService(repo rosterRepository, cache rosterCache, sections classSectionReader, metrics cacheLookupObserver, ttl time.Duration, logger *zap.Logger) *RosterService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		repo:     repo,
		cache:    cache,
		sections: sections,
		metrics:  metrics,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		ttl:      ttl,
		logger:   logger,
	}
}

func rosterCacheKey(scope models.RollScope) string {
	return "roster:" + scope.Key()
}

// Get returns the roster for a scope.
func (s *RosterService) Get(ctx context.Context, scope models.RollScope) ([]models.RosterEntry, error) {
	if scope.ClassSectionID == "" || scope.AcademicYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class_section_id and academic_year_id are required")
	}

	if s.cache != nil {
		var cached []models.RosterEntry
		if err := s.cache.Get(ctx, rosterCacheKey(scope), &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheLookup(true)
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(false)
		}
	}

	roster, err := s.repo.ListRoster(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, rosterCacheKey(scope), roster, s.ttl); err != nil {
			s.logger.Warn("failed to cache roster", zap.String("scope", scope.Key()), zap.Error(err))
		}
	}
	return roster, nil
}

// Invalidate drops the cached roster for a scope.
func (s *RosterService) Invalidate(ctx context.Context, scope models.RollScope) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, rosterCacheKey(scope)); err != nil {
		s.logger.Warn("failed to invalidate roster cache", zap.String("scope", scope.Key()), zap.Error(err))
	}
}

// ExportCSV renders the roster as CSV.
func (s *RosterService) ExportCSV(ctx context.Context, scope models.RollScope) ([]byte, string, error) {
	dataset, title, err := s.dataset(ctx, scope)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster csv")
	}
	return payload, exportFilename(title, "csv"), nil
}

// ExportPDF renders the roster as a tabular PDF.
func (s *RosterService) ExportPDF(ctx context.Context, scope models.RollScope) ([]byte, string, error) {
	dataset, title, err := s.dataset(ctx, scope)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.pdf.Render(dataset, title)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster pdf")
	}
	return payload, exportFilename(title, "pdf"), nil
}

func (s *RosterService) dataset(ctx context.Context, scope models.RollScope) (export.Dataset, string, error) {
	roster, err := s.Get(ctx, scope)
	if err != nil {
		return export.Dataset{}, "", err
	}

	title := "roster"
	if s.sections != nil {
		section, err := s.sections.FindByID(ctx, scope.ClassSectionID)
		if err != nil {
			if err != sql.ErrNoRows {
				return export.Dataset{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class section")
			}
		} else {
			title = fmt.Sprintf("roster %s-%s %s", section.ClassCode, section.SectionName, section.AcademicYearCode)
		}
	}

	headers := []string{"Roll", "Admission No", "Name"}
	rows := make([]map[string]string, 0, len(roster))
	for _, entry := range roster {
		roll := ""
		if entry.RollNumber != nil {
			roll = strconv.Itoa(*entry.RollNumber)
		}
		name := entry.FirstName
		if entry.MiddleName != nil && *entry.MiddleName != "" {
			name += " " + *entry.MiddleName
		}
		name += " " + entry.LastName
		rows = append(rows, map[string]string{
			"Roll":         roll,
			"Admission No": entry.AdmissionNo,
			"Name":         name,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}

func exportFilename(title, ext string) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "-"))
	return fmt.Sprintf("%s.%s", slug, ext)
}
