package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sekolahku/sekolahku-api/internal/dto"
	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type attendanceRepoStub struct {
	stored      []models.DailyAttendance
	conflicts   []models.DailyAttendance
	atomicFlag  *bool
	summaryYear string
}

func (r *attendanceRepoStub) List(ctx context.Context, filter models.DailyAttendanceFilter) ([]models.DailyAttendanceRecord, int, error) {
	return nil, 0, nil
}

func (r *attendanceRepoStub) Upsert(ctx context.Context, record *models.DailyAttendance) (*models.DailyAttendance, error) {
	record.ID = "att-1"
	r.stored = append(r.stored, *record)
	return record, nil
}

func (r *attendanceRepoStub) BulkInsert(ctx context.Context, records []models.DailyAttendance, atomic bool) ([]models.DailyAttendance, error) {
	r.atomicFlag = &atomic
	r.stored = append(r.stored, records...)
	return r.conflicts, nil
}

func (r *attendanceRepoStub) ClassReport(ctx context.Context, classID, yearID string, date time.Time) ([]models.DailyAttendanceReportRow, error) {
	return nil, nil
}

func (r *attendanceRepoStub) StudentSummary(ctx context.Context, studentID, yearID string) (*models.DailyAttendanceSummary, error) {
	r.summaryYear = yearID
	return &models.DailyAttendanceSummary{}, nil
}

func TestAttendanceUpsertRejectsUnknownStatus(t *testing.T) {
	svc := NewAttendanceService(&attendanceRepoStub{}, nil)

	_, err := svc.Upsert(context.Background(), dto.UpsertAttendanceRequest{
		EnrollmentID: "enr-1",
		Date:         time.Now(),
		Status:       "X",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceBulkDefaultsToPartialMode(t *testing.T) {
	repo := &attendanceRepoStub{conflicts: []models.DailyAttendance{{EnrollmentID: "enr-2"}}}
	svc := NewAttendanceService(repo, nil)

	result, err := svc.BulkRecord(context.Background(), dto.BulkAttendanceRequest{
		Date: time.Now(),
		Entries: []dto.AttendanceEntry{
			{EnrollmentID: "enr-1", Status: "H"},
			{EnrollmentID: "enr-2", Status: "S"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.atomicFlag)
	require.False(t, *repo.atomicFlag)
	require.Equal(t, 2, result.Submitted)
	require.Equal(t, 1, result.Inserted)
	require.Len(t, result.Conflicts, 1)
}

func TestAttendanceBulkAtomicMode(t *testing.T) {
	repo := &attendanceRepoStub{}
	svc := NewAttendanceService(repo, nil)

	_, err := svc.BulkRecord(context.Background(), dto.BulkAttendanceRequest{
		Date: time.Now(),
		Mode: "atomic",
		Entries: []dto.AttendanceEntry{
			{EnrollmentID: "enr-1", Status: "A"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.atomicFlag)
	require.True(t, *repo.atomicFlag)
}

func TestAttendanceBulkRejectsUnknownMode(t *testing.T) {
	svc := NewAttendanceService(&attendanceRepoStub{}, nil)

	_, err := svc.BulkRecord(context.Background(), dto.BulkAttendanceRequest{
		Date: time.Now(),
		Mode: "bestEffort",
		Entries: []dto.AttendanceEntry{
			{EnrollmentID: "enr-1", Status: "H"},
		},
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
