package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
	"github.com/sekolahku/sekolahku-api/pkg/export"
	"github.com/sekolahku/sekolahku-api/pkg/jobs"
)

type exportEnrollmentSource interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type exportAttendanceSource interface {
	ClassReport(ctx context.Context, classID, yearID string, date time.Time) ([]models.DailyAttendanceReportRow, error)
}

// ExportFile carries rendered bytes with download metadata.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders class rosters and attendance reports as CSV or PDF.
type ExportService struct {
	enrollments exportEnrollmentSource
	attendance  exportAttendanceSource
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	archive     *jobs.Queue
	logger      *zap.Logger
}

// NewExportService constructs the service. A nil archive queue disables
// background archiving of rendered files.
func NewExportService(enrollments exportEnrollmentSource, attendance exportAttendanceSource, archive *jobs.Queue, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enrollments: enrollments,
		attendance:  attendance,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		archive:     archive,
		logger:      logger,
	}
}

// Roster exports the enrollment roster of a class and year.
func (s *ExportService) Roster(ctx context.Context, classID, yearID, format string) (*ExportFile, error) {
	entries, _, err := s.enrollments.List(ctx, models.EnrollmentFilter{
		ClassID:        classID,
		AcademicYearID: yearID,
		Page:           1,
		PageSize:       100,
		SortBy:         "roll_number",
		SortOrder:      "ASC",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	dataset := export.Dataset{
		Headers: []string{"Roll Number", "NIS", "Name", "Class", "Section"},
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Roll Number": entry.RollNumber,
			"NIS":         entry.StudentNIS,
			"Name":        entry.StudentName,
			"Class":       entry.ClassName,
			"Section":     entry.SectionName,
		})
	}
	return s.render(dataset, "class roster", fmt.Sprintf("roster-%s-%s", classID, yearID), format)
}

// AttendanceReport exports a class attendance sheet for one date.
func (s *ExportService) AttendanceReport(ctx context.Context, classID, yearID string, date time.Time, format string) (*ExportFile, error) {
	rows, err := s.attendance.ClassReport(ctx, classID, yearID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance report")
	}
	dataset := export.Dataset{
		Headers: []string{"No", "Name", "Status", "Notes"},
	}
	for i, row := range rows {
		notes := ""
		if row.Notes != nil {
			notes = *row.Notes
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"No":     strconv.Itoa(i + 1),
			"Name":   row.StudentName,
			"Status": string(row.Status),
			"Notes":  notes,
		})
	}
	name := fmt.Sprintf("attendance-%s-%s", classID, date.Format("2006-01-02"))
	return s.render(dataset, "attendance report", name, format)
}

func (s *ExportService) render(dataset export.Dataset, title, baseName, format string) (*ExportFile, error) {
	var file *ExportFile
	switch format {
	case "", "csv":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		file = &ExportFile{FileName: baseName + ".csv", ContentType: "text/csv", Data: data}
	case "pdf":
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		file = &ExportFile{FileName: baseName + ".pdf", ContentType: "application/pdf", Data: data}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	if s.archive != nil {
		task := jobs.Task{ID: uuid.NewString(), Kind: "archive", Payload: file}
		if err := s.archive.Push(task); err != nil {
			s.logger.Warn("failed to queue export archive",
				zap.String("file", file.FileName), zap.Error(err))
		}
	}
	return file, nil
}
