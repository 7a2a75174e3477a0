package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/sekolahku-api/internal/models"
	"github.com/sekolahku/sekolahku-api/internal/service"
	"github.com/sekolahku/sekolahku-api/pkg/response"
)

// EnrollmentHandler exposes read-only enrollment ledger endpoints. Writes go
// through the promotion endpoints only.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param classId query string false "Filter by class"
// @Param sectionId query string false "Filter by section"
// @Param academicYearId query string false "Filter by academic year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	filter.StudentID = c.Query("studentId")
	filter.ClassID = c.Query("classId")
	filter.SectionID = c.Query("sectionId")
	filter.AcademicYearID = c.Query("academicYearId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	enrollments, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Find godoc
// @Summary Find a student's enrollment for one academic year
// @Tags Enrollments
// @Produce json
// @Param studentId path string true "Student ID"
// @Param academicYearId path string true "Academic year ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollments/{studentId}/{academicYearId} [get]
func (h *EnrollmentHandler) Find(c *gin.Context) {
	enrollment, err := h.enrollments.Find(c.Request.Context(), c.Param("studentId"), c.Param("academicYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
