package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/sekolahku-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryListCandidatesFilters(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "student_id", "academic_year_id", "class_id", "section_id", "roll_number", "created_at"}).
		AddRow("enr-1", "student-1", "year-1", "class-10", "sec-10a", "10-A-001", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, academic_year_id, class_id, section_id, roll_number, created_at FROM enrollments WHERE class_id = $1 AND academic_year_id = $2 AND section_id = $3 AND student_id IN ($4,$5) ORDER BY roll_number ASC")).
		WithArgs("class-10", "year-1", "sec-10a", "student-1", "student-2").
		WillReturnRows(rows)

	entries, err := repo.ListCandidates(context.Background(), "class-10", "year-1", "sec-10a", []string{"student-1", "student-2"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "10-A-001", entries[0].RollNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateTxSkipDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, academic_year_id) DO NOTHING RETURNING id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("enr-1"))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, academic_year_id) DO NOTHING RETURNING id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	inserted, err := repo.CreateTxSkipDuplicate(context.Background(), tx, &models.Enrollment{
		StudentID: "student-1", AcademicYearID: "year-2",
		ClassID: "class-11", SectionID: "sec-11a", RollNumber: "10-A-001",
	})
	require.NoError(t, err)
	require.True(t, inserted)

	skipped, err := repo.CreateTxSkipDuplicate(context.Background(), tx, &models.Enrollment{
		StudentID: "student-2", AcademicYearID: "year-2",
		ClassID: "class-11", SectionID: "sec-11a", RollNumber: "10-A-002",
	})
	require.NoError(t, err)
	require.False(t, skipped, "existing (student, year) pair must be skipped, not fail")

	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMaxRollNumberTx(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT roll_number FROM enrollments WHERE academic_year_id = $1 AND roll_number LIKE $2 ESCAPE '\' ORDER BY roll_number DESC LIMIT 1`)).
		WithArgs("year-1", "10-A-%").
		WillReturnRows(sqlmock.NewRows([]string{"roll_number"}).AddRow("10-A-012"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT roll_number FROM enrollments")).
		WithArgs("year-1", "11-B-%").
		WillReturnRows(sqlmock.NewRows([]string{"roll_number"}))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)

	roll, err := repo.MaxRollNumberTx(context.Background(), tx, "year-1", "10-A-")
	require.NoError(t, err)
	require.Equal(t, "10-A-012", roll)

	roll, err = repo.MaxRollNumberTx(context.Background(), tx, "year-1", "11-B-")
	require.NoError(t, err)
	require.Empty(t, roll, "an unused prefix yields no max, not an error")

	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMaxRollNumberTxEscapesWildcards(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	// A class named "10%" must not match "105-A-..." rolls.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT roll_number FROM enrollments")).
		WithArgs("year-1", `10\%-A\_B-%`).
		WillReturnRows(sqlmock.NewRows([]string{"roll_number"}))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)

	roll, err := repo.MaxRollNumberTx(context.Background(), tx, "year-1", "10%-A_B-")
	require.NoError(t, err)
	require.Empty(t, roll)

	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}
