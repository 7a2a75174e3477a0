package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/sekolahku-api/internal/service"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
	"github.com/sekolahku/sekolahku-api/pkg/response"
)

// ExportHandler serves CSV and PDF downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

func serveFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Roster godoc
// @Summary Export a class roster
// @Tags Exports
// @Produce octet-stream
// @Param classId query string true "Class ID"
// @Param academicYearId query string true "Academic year ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /exports/roster [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	file, err := h.exports.Roster(c.Request.Context(), c.Query("classId"), c.Query("academicYearId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file)
}

// AttendanceReport godoc
// @Summary Export a class attendance report for one date
// @Tags Exports
// @Produce octet-stream
// @Param classId query string true "Class ID"
// @Param academicYearId query string true "Academic year ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /exports/attendance [get]
func (h *ExportHandler) AttendanceReport(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}
	format := c.DefaultQuery("format", "csv")
	file, err := h.exports.AttendanceReport(c.Request.Context(), c.Query("classId"), c.Query("academicYearId"), date, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file)
}
