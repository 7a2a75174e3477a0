package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/sekolahku-api/internal/dto"
	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type yearStoreStub struct {
	years []models.AcademicYear
}

func (s *yearStoreStub) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	for i := range s.years {
		if s.years[i].ID == id {
			year := s.years[i]
			return &year, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *yearStoreStub) Snapshot(ctx context.Context) ([]models.AcademicYear, error) {
	return s.years, nil
}

type classStoreStub struct {
	classes []models.Class
}

func (s *classStoreStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	for i := range s.classes {
		if s.classes[i].ID == id {
			class := s.classes[i]
			return &class, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *classStoreStub) FindNextBySeq(ctx context.Context, seq int) (*models.Class, error) {
	var next *models.Class
	for i := range s.classes {
		class := &s.classes[i]
		if class.Seq == nil || *class.Seq <= seq {
			continue
		}
		if next == nil || *class.Seq < *next.Seq {
			next = class
		}
	}
	if next == nil {
		return nil, sql.ErrNoRows
	}
	class := *next
	return &class, nil
}

type sectionStoreStub struct {
	sections []models.Section
}

func (s *sectionStoreStub) FindByID(ctx context.Context, id string) (*models.Section, error) {
	for i := range s.sections {
		if s.sections[i].ID == id {
			section := s.sections[i]
			return &section, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *sectionStoreStub) FindByClass(ctx context.Context, classID string) ([]models.Section, error) {
	var result []models.Section
	for i := range s.sections {
		if s.sections[i].ClassID == classID {
			result = append(result, s.sections[i])
		}
	}
	return result, nil
}

type studentStoreStub struct {
	students   map[string]*models.Student
	placements map[string]models.StudentPlacement
}

func (s *studentStoreStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := s.students[id]; ok {
		copy := *student
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *studentStoreStub) UpdatePlacementTx(ctx context.Context, tx *sqlx.Tx, studentID string, placement models.StudentPlacement) error {
	s.placements[studentID] = placement
	return nil
}

type ledgerStub struct {
	entries    map[string]map[string]models.Enrollment
	candidates []models.Enrollment
	maxRoll    string
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{entries: map[string]map[string]models.Enrollment{}}
}

func (l *ledgerStub) put(entry models.Enrollment) {
	if l.entries[entry.StudentID] == nil {
		l.entries[entry.StudentID] = map[string]models.Enrollment{}
	}
	l.entries[entry.StudentID][entry.AcademicYearID] = entry
}

func (l *ledgerStub) FindByStudentAndYear(ctx context.Context, studentID, yearID string) (*models.Enrollment, error) {
	if entry, ok := l.entries[studentID][yearID]; ok {
		return &entry, nil
	}
	return nil, sql.ErrNoRows
}

func (l *ledgerStub) ExistsForYear(ctx context.Context, studentID, yearID string) (bool, error) {
	_, ok := l.entries[studentID][yearID]
	return ok, nil
}

func (l *ledgerStub) ListCandidates(ctx context.Context, classID, yearID, sectionID string, studentIDs []string) ([]models.Enrollment, error) {
	return l.candidates, nil
}

func (l *ledgerStub) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	enrollment.ID = "enr-" + enrollment.StudentID + "-" + enrollment.AcademicYearID
	l.put(*enrollment)
	return nil
}

func (l *ledgerStub) CreateTxSkipDuplicate(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) (bool, error) {
	if _, ok := l.entries[enrollment.StudentID][enrollment.AcademicYearID]; ok {
		return false, nil
	}
	return true, l.CreateTx(ctx, tx, enrollment)
}

func (l *ledgerStub) MaxRollNumberTx(ctx context.Context, tx *sqlx.Tx, yearID, prefix string) (string, error) {
	return l.maxRoll, nil
}

type txRunnerStub struct {
	calls int
}

func (r *txRunnerStub) Within(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	r.calls++
	return fn(nil)
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type promotionFixture struct {
	years    *yearStoreStub
	classes  *classStoreStub
	sections *sectionStoreStub
	students *studentStoreStub
	ledger   *ledgerStub
	tx       *txRunnerStub
	audit    *auditStub
	svc      *PromotionService
}

func seqPtr(v int) *int { return &v }

func newPromotionFixture() *promotionFixture {
	f := &promotionFixture{
		years: &yearStoreStub{years: []models.AcademicYear{
			{
				ID: "year-1", Name: "2024-2025", Seq: seqPtr(1), IsActive: true, IsCurrent: true,
				StartDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			},
			{
				ID: "year-2", Name: "2025-2026", Seq: seqPtr(2), IsActive: true,
				StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
			},
			{
				ID: "year-3", Name: "2026-2027", Seq: seqPtr(3), IsActive: true,
				StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
			},
		}},
		classes: &classStoreStub{classes: []models.Class{
			{ID: "class-10", Name: "10", Seq: seqPtr(10)},
			{ID: "class-11", Name: "11", Seq: seqPtr(11)},
			{ID: "class-12", Name: "12", Seq: seqPtr(12)},
		}},
		sections: &sectionStoreStub{sections: []models.Section{
			{ID: "sec-10a", ClassID: "class-10", Name: "A"},
			{ID: "sec-10c", ClassID: "class-10", Name: "C"},
			{ID: "sec-11a", ClassID: "class-11", Name: "a"},
			{ID: "sec-11b", ClassID: "class-11", Name: "B"},
		}},
		students: &studentStoreStub{
			students: map[string]*models.Student{
				"student-1": {ID: "student-1", NIS: "1001", FullName: "Budi", Active: true},
				"student-2": {ID: "student-2", NIS: "1002", FullName: "Sari", Active: true},
			},
			placements: map[string]models.StudentPlacement{},
		},
		ledger: newLedgerStub(),
		tx:     &txRunnerStub{},
		audit:  &auditStub{},
	}
	f.svc = NewPromotionService(f.years, f.classes, f.sections, f.students, f.ledger, f.tx, f.audit, nil)
	return f
}

func TestPromoteOneCarriesRollForward(t *testing.T) {
	f := newPromotionFixture()
	f.ledger.put(models.Enrollment{
		StudentID: "student-1", AcademicYearID: "year-1",
		ClassID: "class-10", SectionID: "sec-10a", RollNumber: "10-A-007",
	})

	entry, err := f.svc.PromoteOne(context.Background(), dto.PromoteStudentRequest{
		StudentID:            "student-1",
		SourceAcademicYearID: "year-1",
		TargetAcademicYearID: "year-2",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-11a",
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, "class-11", entry.ClassID)
	require.Equal(t, "sec-11a", entry.SectionID)
	require.Equal(t, "10-A-007", entry.RollNumber, "promotion keeps the old roll number")

	placement, ok := f.students.placements["student-1"]
	require.True(t, ok, "snapshot must be rewritten in the same transaction")
	require.Equal(t, "year-2", placement.AcademicYearID)
	require.Equal(t, 1, f.tx.calls)
	require.Len(t, f.audit.logs, 1)
	require.Equal(t, models.AuditActionPromotion, f.audit.logs[0].Action)
}

func TestPromoteOneRequiresCurrentSourceYear(t *testing.T) {
	f := newPromotionFixture()
	f.ledger.put(models.Enrollment{
		StudentID: "student-1", AcademicYearID: "year-2",
		ClassID: "class-10", SectionID: "sec-10a", RollNumber: "10-A-001",
	})

	_, err := f.svc.PromoteOne(context.Background(), dto.PromoteStudentRequest{
		StudentID:            "student-1",
		SourceAcademicYearID: "year-2",
		TargetAcademicYearID: "year-3",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-11a",
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Zero(t, f.tx.calls)
}

func TestPromoteOneRejectsSameYear(t *testing.T) {
	f := newPromotionFixture()

	_, err := f.svc.PromoteOne(context.Background(), dto.PromoteStudentRequest{
		StudentID:            "student-1",
		SourceAcademicYearID: "year-1",
		TargetAcademicYearID: "year-1",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-11a",
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPromoteOneRejectsNonSuccessorYear(t *testing.T) {
	f := newPromotionFixture()

	_, err := f.svc.PromoteOne(context.Background(), dto.PromoteStudentRequest{
		StudentID:            "student-1",
		SourceAcademicYearID: "year-1",
		TargetAcademicYearID: "year-3",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-11a",
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPromoteOneRejectsDuplicateTargetEnrollment(t *testing.T) {
	f := newPromotionFixture()
	f.ledger.put(models.Enrollment{
		StudentID: "student-1", AcademicYearID: "year-1",
		ClassID: "class-10", SectionID: "sec-10a", RollNumber: "10-A-007",
	})
	f.ledger.put(models.Enrollment{
		StudentID: "student-1", AcademicYearID: "year-2",
		ClassID: "class-11", SectionID: "sec-11a", RollNumber: "10-A-007",
	})

	_, err := f.svc.PromoteOne(context.Background(), dto.PromoteStudentRequest{
		StudentID:            "student-1",
		SourceAcademicYearID: "year-1",
		TargetAcademicYearID: "year-2",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-11a",
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPromoteOneRejectsSectionOutsideTargetClass(t *testing.T) {
	f := newPromotionFixture()
	f.ledger.put(models.Enrollment{
		StudentID: "student-1", AcademicYearID: "year-1",
		ClassID: "class-10", SectionID: "sec-10a", RollNumber: "10-A-007",
	})

	_, err := f.svc.PromoteOne(context.Background(), dto.PromoteStudentRequest{
		StudentID:            "student-1",
		SourceAcademicYearID: "year-1",
		TargetAcademicYearID: "year-2",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-10a",
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Zero(t, f.tx.calls)
}

func TestPromoteBulkSkipsAlreadyEnrolled(t *testing.T) {
	f := newPromotionFixture()
	f.ledger.candidates = []models.Enrollment{
		{StudentID: "student-1", AcademicYearID: "year-1", ClassID: "class-10", SectionID: "sec-10a", RollNumber: "10-A-001"},
		{StudentID: "student-2", AcademicYearID: "year-1", ClassID: "class-10", SectionID: "sec-10a", RollNumber: "10-A-002"},
	}
	// student-2 was already moved to the target year by a single promotion.
	f.ledger.put(models.Enrollment{
		StudentID: "student-2", AcademicYearID: "year-2",
		ClassID: "class-11", SectionID: "sec-11a", RollNumber: "10-A-002",
	})

	result, err := f.svc.PromoteBulk(context.Background(), dto.BulkPromotionRequest{
		ClassID:              "class-10",
		SourceAcademicYearID: "year-1",
		TargetAcademicYearID: "year-2",
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.Selected)
	require.Equal(t, 2, result.Matched)
	require.Equal(t, 1, result.Modified)
	require.Equal(t, "class-11", result.TargetClassID)
	require.Equal(t, "sec-11a", result.TargetSectionID)

	_, moved := f.students.placements["student-1"]
	require.True(t, moved)
	_, skipped := f.students.placements["student-2"]
	require.False(t, skipped, "skipped students keep their snapshot untouched")
}

func TestPromoteBulkAbortsOnUnmappedSection(t *testing.T) {
	f := newPromotionFixture()
	f.ledger.candidates = []models.Enrollment{
		{StudentID: "student-1", AcademicYearID: "year-1", ClassID: "class-10", SectionID: "sec-10a", RollNumber: "10-A-001"},
		{StudentID: "student-2", AcademicYearID: "year-1", ClassID: "class-10", SectionID: "sec-10c", RollNumber: "10-C-001"},
	}

	_, err := f.svc.PromoteBulk(context.Background(), dto.BulkPromotionRequest{
		ClassID:              "class-10",
		SourceAcademicYearID: "year-1",
		TargetAcademicYearID: "year-2",
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.Contains(t, appErrors.FromError(err).Message, "sec-10c")
}

func TestPromoteBulkHonorsExplicitTarget(t *testing.T) {
	f := newPromotionFixture()
	// sec-10c has no name match in class-11; an explicit target section must
	// bypass the mapping entirely.
	f.ledger.candidates = []models.Enrollment{
		{StudentID: "student-1", AcademicYearID: "year-1", ClassID: "class-10", SectionID: "sec-10a", RollNumber: "10-A-001"},
		{StudentID: "student-2", AcademicYearID: "year-1", ClassID: "class-10", SectionID: "sec-10c", RollNumber: "10-C-001"},
	}

	result, err := f.svc.PromoteBulk(context.Background(), dto.BulkPromotionRequest{
		ClassID:              "class-10",
		SourceAcademicYearID: "year-1",
		TargetAcademicYearID: "year-2",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-11b",
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.Modified)
	require.Equal(t, "class-11", result.TargetClassID)
	require.Equal(t, "sec-11b", result.TargetSectionID)
	require.Equal(t, "sec-11b", f.students.placements["student-2"].SectionID)
}

func TestPromoteBulkTopOfLadder(t *testing.T) {
	f := newPromotionFixture()

	_, err := f.svc.PromoteBulk(context.Background(), dto.BulkPromotionRequest{
		ClassID:              "class-12",
		SourceAcademicYearID: "year-1",
		TargetAcademicYearID: "year-2",
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReAdmitGeneratesSequentialRollNumber(t *testing.T) {
	f := newPromotionFixture()
	f.ledger.maxRoll = "11-B-002"

	entry, err := f.svc.ReAdmitOne(context.Background(), dto.ReAdmissionRequest{
		StudentID:            "student-1",
		TargetAcademicYearID: "year-1",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-11b",
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, "11-B-003", entry.RollNumber)

	placement := f.students.placements["student-1"]
	require.Equal(t, "11-B-003", placement.RollNumber)
	require.Len(t, f.audit.logs, 1)
	require.Equal(t, models.AuditActionReAdmission, f.audit.logs[0].Action)
}

func TestReAdmitStartsRollNumberAtOne(t *testing.T) {
	f := newPromotionFixture()

	entry, err := f.svc.ReAdmitOne(context.Background(), dto.ReAdmissionRequest{
		StudentID:            "student-1",
		TargetAcademicYearID: "year-1",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-11b",
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, "11-B-001", entry.RollNumber)
}

func TestReAdmitAllowsAnyYear(t *testing.T) {
	f := newPromotionFixture()

	// year-2 is neither flagged current nor the latest started year, yet
	// re-admission into it must succeed.
	entry, err := f.svc.ReAdmitOne(context.Background(), dto.ReAdmissionRequest{
		StudentID:            "student-1",
		TargetAcademicYearID: "year-2",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-11b",
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, "year-2", entry.AcademicYearID)
	require.Equal(t, "11-B-001", entry.RollNumber)
}

func TestReAdmitRejectsForeignSection(t *testing.T) {
	f := newPromotionFixture()

	_, err := f.svc.ReAdmitOne(context.Background(), dto.ReAdmissionRequest{
		StudentID:            "student-1",
		TargetAcademicYearID: "year-1",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-10a",
	}, "admin-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReAdmitBulkReportsPartialFailures(t *testing.T) {
	f := newPromotionFixture()
	// student-2 is already in year-1, so only that admission fails.
	f.ledger.put(models.Enrollment{
		StudentID: "student-2", AcademicYearID: "year-1",
		ClassID: "class-11", SectionID: "sec-11b", RollNumber: "11-B-001",
	})

	report, err := f.svc.ReAdmitBulk(context.Background(), dto.BulkReAdmissionRequest{
		StudentIDs:           []string{"student-1", "student-2", "student-missing"},
		TargetAcademicYearID: "year-1",
		TargetClassID:        "class-11",
		TargetSectionID:      "sec-11b",
	}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, 3, report.Total)
	require.Equal(t, 1, report.Successful)
	require.Equal(t, 2, report.Failed)
	require.Len(t, report.Errors, 2)
	require.Equal(t, "student-2", report.Errors[0].StudentID)
	require.Equal(t, "student-missing", report.Errors[1].StudentID)
}

func TestResolveCurrentYear(t *testing.T) {
	flagged := models.AcademicYear{
		ID: "flagged", IsCurrent: true,
		StartDate: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	older := models.AcademicYear{
		ID: "older", IsActive: true,
		StartDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	newer := models.AcademicYear{
		ID: "newer", IsActive: true,
		StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	inactive := models.AcademicYear{
		ID: "inactive", IsActive: false,
		StartDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
	}

	t.Run("explicit flag wins over later active years", func(t *testing.T) {
		got := ResolveCurrentYear([]models.AcademicYear{older, newer, flagged})
		require.NotNil(t, got)
		require.Equal(t, "flagged", got.ID)
	})

	t.Run("falls back to the most recently started active year", func(t *testing.T) {
		got := ResolveCurrentYear([]models.AcademicYear{older, newer})
		require.NotNil(t, got)
		require.Equal(t, "newer", got.ID)
	})

	t.Run("inactive years never win", func(t *testing.T) {
		got := ResolveCurrentYear([]models.AcademicYear{older, inactive})
		require.NotNil(t, got)
		require.Equal(t, "older", got.ID)
	})

	t.Run("nil when nothing qualifies", func(t *testing.T) {
		got := ResolveCurrentYear([]models.AcademicYear{inactive})
		require.Nil(t, got)
	})
}
