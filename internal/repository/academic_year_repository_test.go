package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newYearRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAcademicYearRepositorySetCurrentUnsetsFirst(t *testing.T) {
	db, mock, cleanup := newYearRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_current = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE academic_years SET is_current = TRUE, is_active = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetCurrent(context.Background(), "year-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositorySnapshot(t *testing.T) {
	db, mock, cleanup := newYearRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "start_date", "end_date", "is_active", "is_current", "seq", "created_at", "updated_at"}).
		AddRow("year-1", "2024-2025", now, now, true, true, 1, now, now).
		AddRow("year-2", "2025-2026", now, now, true, false, 2, now, now)
	mock.ExpectQuery("SELECT .+ FROM academic_years").WillReturnRows(rows)

	years, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, years, 2)
	require.True(t, years[0].IsCurrent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearRepositoryCountEnrollments(t *testing.T) {
	db, mock, cleanup := newYearRepoMock(t)
	defer cleanup()

	repo := NewAcademicYearRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE academic_year_id = $1")).
		WithArgs("year-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountEnrollments(context.Background(), "year-1")
	require.NoError(t, err)
	require.Equal(t, 42, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
