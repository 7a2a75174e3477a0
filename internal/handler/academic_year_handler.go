package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/sekolahku-api/internal/models"
	"github.com/sekolahku/sekolahku-api/internal/service"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
	"github.com/sekolahku/sekolahku-api/pkg/response"
)

// AcademicYearHandler exposes academic year directory endpoints.
type AcademicYearHandler struct {
	years *service.AcademicYearService
}

// NewAcademicYearHandler constructs AcademicYearHandler.
func NewAcademicYearHandler(years *service.AcademicYearService) *AcademicYearHandler {
	return &AcademicYearHandler{years: years}
}

// List godoc
// @Summary List academic years
// @Tags AcademicYears
// @Produce json
// @Param active query bool false "Filter by active state"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic-years [get]
func (h *AcademicYearHandler) List(c *gin.Context) {
	var filter models.AcademicYearFilter
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.IsActive = &v
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	years, pagination, err := h.years.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, pagination)
}

// Current godoc
// @Summary Resolve the current academic year
// @Tags AcademicYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /academic-years/current [get]
func (h *AcademicYearHandler) Current(c *gin.Context) {
	year, err := h.years.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Get godoc
// @Summary Get academic year detail
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic-years/{id} [get]
func (h *AcademicYearHandler) Get(c *gin.Context) {
	year, err := h.years.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Create godoc
// @Summary Create academic year
// @Tags AcademicYears
// @Accept json
// @Produce json
// @Param payload body service.CreateAcademicYearRequest true "Academic year payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /academic-years [post]
func (h *AcademicYearHandler) Create(c *gin.Context) {
	var req service.CreateAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.years.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// Update godoc
// @Summary Update academic year
// @Tags AcademicYears
// @Accept json
// @Produce json
// @Param id path string true "Academic year ID"
// @Param payload body service.UpdateAcademicYearRequest true "Academic year payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic-years/{id} [put]
func (h *AcademicYearHandler) Update(c *gin.Context) {
	var req service.UpdateAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	year, err := h.years.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// SetCurrent godoc
// @Summary Mark an academic year as the current one
// @Description Clears the flag from every other year in the same statement.
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic-years/{id}/set-current [post]
func (h *AcademicYearHandler) SetCurrent(c *gin.Context) {
	year, err := h.years.SetCurrent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// SetActive godoc
// @Summary Activate or deactivate an academic year
// @Tags AcademicYears
// @Produce json
// @Param id path string true "Academic year ID"
// @Param active query bool true "Target state"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /academic-years/{id}/set-active [post]
func (h *AcademicYearHandler) SetActive(c *gin.Context) {
	active := c.DefaultQuery("active", "true") == "true"
	year, err := h.years.SetActive(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Delete godoc
// @Summary Delete academic year
// @Description Only allowed when the year is not current and carries no
// @Description enrollments.
// @Tags AcademicYears
// @Param id path string true "Academic year ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /academic-years/{id} [delete]
func (h *AcademicYearHandler) Delete(c *gin.Context) {
	if err := h.years.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
