package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/sekolahku-api/internal/dto"
	"github.com/sekolahku/sekolahku-api/internal/models"
	"github.com/sekolahku/sekolahku-api/internal/service"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
	"github.com/sekolahku/sekolahku-api/pkg/response"
)

// AttendanceHandler exposes daily attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param classId query string false "Filter by class"
// @Param sectionId query string false "Filter by section"
// @Param academicYearId query string false "Filter by academic year"
// @Param studentId query string false "Filter by student"
// @Param status query string false "Filter by status (H, S, I, A)"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.DailyAttendanceFilter
	filter.ClassID = c.Query("classId")
	filter.SectionID = c.Query("sectionId")
	filter.AcademicYearID = c.Query("academicYearId")
	filter.StudentID = c.Query("studentId")
	if status := c.Query("status"); status != "" {
		st := models.AttendanceStatus(status)
		filter.Status = &st
	}
	if from := c.Query("dateFrom"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.DateFrom = &t
		}
	}
	if to := c.Query("dateTo"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.DateTo = &t
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Upsert godoc
// @Summary Record or correct one attendance entry
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.UpsertAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [post]
func (h *AttendanceHandler) Upsert(c *gin.Context) {
	var req dto.UpsertAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// BulkRecord godoc
// @Summary Record attendance for a whole class on one date
// @Description Mode "atomic" aborts on the first duplicate, the default
// @Description "partialOnError" skips duplicates and reports them.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.BulkAttendanceRequest true "Bulk attendance payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) BulkRecord(c *gin.Context) {
	var req dto.BulkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.attendance.BulkRecord(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClassReport godoc
// @Summary Attendance report for a class on one date
// @Tags Attendance
// @Produce json
// @Param classId query string true "Class ID"
// @Param academicYearId query string true "Academic year ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/report [get]
func (h *AttendanceHandler) ClassReport(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}
	rows, err := h.attendance.ClassReport(c.Request.Context(), c.Query("classId"), c.Query("academicYearId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// StudentSummary godoc
// @Summary Attendance summary for one student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param academicYearId query string false "Limit to one academic year"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/students/{id}/summary [get]
func (h *AttendanceHandler) StudentSummary(c *gin.Context) {
	summary, err := h.attendance.StudentSummary(c.Request.Context(), c.Param("id"), c.Query("academicYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
