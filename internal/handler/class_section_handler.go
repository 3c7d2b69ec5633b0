package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/school-api/internal/service"
	appErrors "github.com/classbridge/school-api/pkg/errors"
	"github.com/classbridge/school-api/pkg/response"
)

// ClassSectionHandler exposes class-section mapping endpoints.
type ClassSectionHandler struct {
	sections *service.ClassSectionService
}

// NewClassSectionHandler constructs ClassSectionHandler.
func NewClassSectionHandler(sections *service.ClassSectionService) *ClassSectionHandler {
	return &ClassSectionHandler{sections: sections}
}

// List godoc
// @Summary List class sections of an academic year
// @Tags ClassSections
// @Produce json
// @Param academicYearId query string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /class-sections [get]
func (h *ClassSectionHandler) List(c *gin.Context) {
	sections, err := h.sections.ListByYear(c.Request.Context(), c.Query("academicYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// Get godoc
// @Summary Get class section
// @Tags ClassSections
// @Produce json
// @Param id path string true "Class section ID"
// @Success 200 {object} response.Envelope
// @Router /class-sections/{id} [get]
func (h *ClassSectionHandler) Get(c *gin.Context) {
	detail, err := h.sections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Map a class and section onto an academic year
// @Tags ClassSections
// @Accept json
// @Produce json
// @Param payload body service.CreateClassSectionRequest true "Class section payload"
// @Success 201 {object} response.Envelope
// @Router /class-sections [post]
func (h *ClassSectionHandler) Create(c *gin.Context) {
	var req service.CreateClassSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.sections.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}
