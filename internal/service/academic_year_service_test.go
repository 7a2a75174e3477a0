package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type yearRepoStub struct {
	years       map[string]*models.AcademicYear
	enrollments map[string]int
	deleted     []string
}

func newYearRepoStub() *yearRepoStub {
	return &yearRepoStub{
		years:       map[string]*models.AcademicYear{},
		enrollments: map[string]int{},
	}
}

func (r *yearRepoStub) List(ctx context.Context, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error) {
	var result []models.AcademicYear
	for _, year := range r.years {
		result = append(result, *year)
	}
	return result, len(result), nil
}

func (r *yearRepoStub) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	if year, ok := r.years[id]; ok {
		copy := *year
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *yearRepoStub) Snapshot(ctx context.Context) ([]models.AcademicYear, error) {
	years, _, err := r.List(ctx, models.AcademicYearFilter{})
	return years, err
}

func (r *yearRepoStub) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for id, year := range r.years {
		if year.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *yearRepoStub) Create(ctx context.Context, year *models.AcademicYear) error {
	year.ID = "year-" + year.Name
	r.years[year.ID] = year
	return nil
}

func (r *yearRepoStub) Update(ctx context.Context, year *models.AcademicYear) error {
	r.years[year.ID] = year
	return nil
}

func (r *yearRepoStub) SetCurrent(ctx context.Context, id string) error {
	for _, year := range r.years {
		year.IsCurrent = year.ID == id
	}
	return nil
}

func (r *yearRepoStub) SetActive(ctx context.Context, id string, active bool) error {
	if year, ok := r.years[id]; ok {
		year.IsActive = active
		return nil
	}
	return sql.ErrNoRows
}

func (r *yearRepoStub) Delete(ctx context.Context, id string) error {
	delete(r.years, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *yearRepoStub) CountEnrollments(ctx context.Context, id string) (int, error) {
	return r.enrollments[id], nil
}

func seedYear(r *yearRepoStub, id, name string, current bool, startYear int) {
	r.years[id] = &models.AcademicYear{
		ID: id, Name: name, IsActive: true, IsCurrent: current,
		StartDate: time.Date(startYear, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(startYear+1, 6, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestAcademicYearCreateRejectsInvertedDates(t *testing.T) {
	svc := NewAcademicYearService(newYearRepoStub(), nil, nil)

	_, err := svc.Create(context.Background(), CreateAcademicYearRequest{
		Name:      "2024-2025",
		StartDate: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAcademicYearCreateRejectsDuplicateName(t *testing.T) {
	repo := newYearRepoStub()
	seedYear(repo, "year-1", "2024-2025", true, 2024)
	svc := NewAcademicYearService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateAcademicYearRequest{
		Name:      "2024-2025",
		StartDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAcademicYearSetCurrentDemotesOthers(t *testing.T) {
	repo := newYearRepoStub()
	seedYear(repo, "year-1", "2024-2025", true, 2024)
	seedYear(repo, "year-2", "2025-2026", false, 2025)
	svc := NewAcademicYearService(repo, nil, nil)

	year, err := svc.SetCurrent(context.Background(), "year-2")
	require.NoError(t, err)
	require.True(t, year.IsCurrent)
	require.False(t, repo.years["year-1"].IsCurrent)
}

func TestAcademicYearCurrentFallsBackToLatestStarted(t *testing.T) {
	repo := newYearRepoStub()
	seedYear(repo, "year-1", "2023-2024", false, 2023)
	seedYear(repo, "year-2", "2024-2025", false, 2024)
	svc := NewAcademicYearService(repo, nil, nil)

	year, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, "year-2", year.ID, "latest-started active year wins when none is flagged")
}

func TestAcademicYearCurrentNotConfigured(t *testing.T) {
	repo := newYearRepoStub()
	seedYear(repo, "year-1", "2024-2025", false, 2024)
	repo.years["year-1"].IsActive = false
	svc := NewAcademicYearService(repo, nil, nil)

	_, err := svc.Current(context.Background())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAcademicYearCannotDeactivateCurrent(t *testing.T) {
	repo := newYearRepoStub()
	seedYear(repo, "year-1", "2024-2025", true, 2024)
	svc := NewAcademicYearService(repo, nil, nil)

	_, err := svc.SetActive(context.Background(), "year-1", false)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.True(t, repo.years["year-1"].IsActive)
}

func TestAcademicYearDeleteGuards(t *testing.T) {
	repo := newYearRepoStub()
	seedYear(repo, "year-1", "2024-2025", true, 2024)
	seedYear(repo, "year-2", "2023-2024", false, 2023)
	repo.enrollments["year-2"] = 12
	seedYear(repo, "year-3", "2022-2023", false, 2022)
	svc := NewAcademicYearService(repo, nil, nil)

	err := svc.Delete(context.Background(), "year-1")
	require.Error(t, err, "current year is protected")
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "year-2")
	require.Error(t, err, "referenced year is protected")
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "year-3")
	require.NoError(t, err)
	require.Equal(t, []string{"year-3"}, repo.deleted)
}
