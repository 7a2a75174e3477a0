package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sekolahku/sekolahku-api/internal/dto"
	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.DailyAttendanceFilter) ([]models.DailyAttendanceRecord, int, error)
	Upsert(ctx context.Context, record *models.DailyAttendance) (*models.DailyAttendance, error)
	BulkInsert(ctx context.Context, records []models.DailyAttendance, atomic bool) ([]models.DailyAttendance, error)
	ClassReport(ctx context.Context, classID, yearID string, date time.Time) ([]models.DailyAttendanceReportRow, error)
	StudentSummary(ctx context.Context, studentID, yearID string) (*models.DailyAttendanceSummary, error)
}

// BulkAttendanceResult reports how a bulk submission went.
type BulkAttendanceResult struct {
	Submitted int                      `json:"submitted"`
	Inserted  int                      `json:"inserted"`
	Conflicts []models.DailyAttendance `json:"conflicts,omitempty"`
}

// AttendanceService handles daily attendance use-cases.
type AttendanceService struct {
	repo   attendanceRepository
	logger *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo attendanceRepository, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, logger: logger}
}

// List returns attendance rows and pagination metadata.
func (s *AttendanceService) List(ctx context.Context, filter models.DailyAttendanceFilter) ([]models.DailyAttendanceRecord, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Upsert records or corrects one attendance row.
func (s *AttendanceService) Upsert(ctx context.Context, req dto.UpsertAttendanceRequest) (*models.DailyAttendance, error) {
	status := models.AttendanceStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of H, S, I, A")
	}
	record := &models.DailyAttendance{
		EnrollmentID: req.EnrollmentID,
		Date:         req.Date,
		Status:       status,
		Notes:        req.Notes,
	}
	stored, err := s.repo.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return stored, nil
}

// BulkRecord stores a whole class submission for one date.
func (s *AttendanceService) BulkRecord(ctx context.Context, req dto.BulkAttendanceRequest) (*BulkAttendanceResult, error) {
	mode := models.BulkOperationMode(req.Mode)
	if mode == "" {
		mode = models.BulkModePartialOnError
	}
	if mode != models.BulkModeAtomic && mode != models.BulkModePartialOnError {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mode must be atomic or partialOnError")
	}
	records := make([]models.DailyAttendance, 0, len(req.Entries))
	for _, entry := range req.Entries {
		status := models.AttendanceStatus(entry.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of H, S, I, A")
		}
		records = append(records, models.DailyAttendance{
			EnrollmentID: entry.EnrollmentID,
			Date:         req.Date,
			Status:       status,
			Notes:        entry.Notes,
		})
	}
	conflicts, err := s.repo.BulkInsert(ctx, records, mode == models.BulkModeAtomic)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "bulk attendance failed")
	}
	return &BulkAttendanceResult{
		Submitted: len(records),
		Inserted:  len(records) - len(conflicts),
		Conflicts: conflicts,
	}, nil
}

// ClassReport returns per-student statuses for a class and date.
func (s *AttendanceService) ClassReport(ctx context.Context, classID, yearID string, date time.Time) ([]models.DailyAttendanceReportRow, error) {
	rows, err := s.repo.ClassReport(ctx, classID, yearID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build class report")
	}
	return rows, nil
}

// StudentSummary aggregates a student's attendance within a year.
func (s *AttendanceService) StudentSummary(ctx context.Context, studentID, yearID string) (*models.DailyAttendanceSummary, error) {
	summary, err := s.repo.StudentSummary(ctx, studentID, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance summary")
	}
	return summary, nil
}
