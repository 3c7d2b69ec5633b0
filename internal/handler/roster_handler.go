package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/school-api/internal/models"
	"github.com/classbridge/school-api/internal/service"
	appErrors "github.com/classbridge/school-api/pkg/errors"
	"github.com/classbridge/school-api/pkg/response"
)

// RosterHandler exposes roster read and export endpoints.
type RosterHandler struct {
	rosters *service.RosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(rosters *service.RosterService) *RosterHandler {
	return &RosterHandler{rosters: rosters}
}

func rosterScope(c *gin.Context) models.RollScope {
	return models.RollScope{
		ClassSectionID: c.Query("classSectionId"),
		AcademicYearID: c.Query("academicYearId"),
	}
}

// Get godoc
// @Summary Get a class-section roster
// @Description Returns enrollments of the scope ordered by roll number.
// @Tags Roster
// @Produce json
// @Param classSectionId query string true "Class section ID"
// @Param academicYearId query string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /roster [get]
func (h *RosterHandler) Get(c *gin.Context) {
	roster, err := h.rosters.Get(c.Request.Context(), rosterScope(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// Export godoc
// @Summary Export a class-section roster
// @Tags Roster
// @Produce application/pdf
// @Produce text/csv
// @Param classSectionId query string true "Class section ID"
// @Param academicYearId query string true "Academic year ID"
// @Param format query string true "Export format (csv or pdf)"
// @Success 200 {file} byte
// @Router /roster/export [get]
func (h *RosterHandler) Export(c *gin.Context) {
	scope := rosterScope(c)
	switch c.DefaultQuery("format", "csv") {
	case "csv":
		payload, filename, err := h.rosters.ExportCSV(c.Request.Context(), scope)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, filename, err := h.rosters.ExportPDF(c.Request.Context(), scope)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
