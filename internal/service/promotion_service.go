package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/sekolahku/sekolahku-api/internal/dto"
	"github.com/sekolahku/sekolahku-api/internal/models"
	"github.com/sekolahku/sekolahku-api/internal/repository"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type promotionYearStore interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	Snapshot(ctx context.Context) ([]models.AcademicYear, error)
}

type promotionClassStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindNextBySeq(ctx context.Context, seq int) (*models.Class, error)
}

type promotionSectionStore interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindByClass(ctx context.Context, classID string) ([]models.Section, error)
}

type promotionStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdatePlacementTx(ctx context.Context, tx *sqlx.Tx, studentID string, placement models.StudentPlacement) error
}

type promotionLedger interface {
	FindByStudentAndYear(ctx context.Context, studentID, yearID string) (*models.Enrollment, error)
	ExistsForYear(ctx context.Context, studentID, yearID string) (bool, error)
	ListCandidates(ctx context.Context, classID, yearID, sectionID string, studentIDs []string) ([]models.Enrollment, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error
	CreateTxSkipDuplicate(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) (bool, error)
	MaxRollNumberTx(ctx context.Context, tx *sqlx.Tx, yearID, prefix string) (string, error)
}

type transactionRunner interface {
	Within(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// PromotionService moves students between academic years: year-over-year
// promotion into an explicit target placement and re-admission into any year.
// Every placement change appends a ledger row and rewrites the student's
// snapshot inside one transaction.
type PromotionService struct {
	years    promotionYearStore
	classes  promotionClassStore
	sections promotionSectionStore
	students promotionStudentStore
	ledger   promotionLedger
	tx       transactionRunner
	audit    auditLogger
	logger   *zap.Logger
}

// NewPromotionService constructs the service.
func NewPromotionService(
	years promotionYearStore,
	classes promotionClassStore,
	sections promotionSectionStore,
	students promotionStudentStore,
	ledger promotionLedger,
	tx transactionRunner,
	audit auditLogger,
	logger *zap.Logger,
) *PromotionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionService{
		years:    years,
		classes:  classes,
		sections: sections,
		students: students,
		ledger:   ledger,
		tx:       tx,
		audit:    audit,
		logger:   logger,
	}
}

// ResolveCurrentYear picks the effective current academic year from a full
// snapshot. The explicit flag wins; otherwise the most recently started
// active year is used. Returns nil when no year qualifies.
func ResolveCurrentYear(years []models.AcademicYear) *models.AcademicYear {
	for i := range years {
		if years[i].IsCurrent {
			return &years[i]
		}
	}
	var latest *models.AcademicYear
	for i := range years {
		year := &years[i]
		if !year.IsActive {
			continue
		}
		if latest == nil || year.StartDate.After(latest.StartDate) {
			latest = year
		}
	}
	return latest
}

// PromoteOne promotes a single student from the source year into an explicit
// target placement in the target year, carrying the roll number forward.
func (s *PromotionService) PromoteOne(ctx context.Context, req dto.PromoteStudentRequest, actorID string) (*models.Enrollment, error) {
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	source, target, err := s.loadYearPair(ctx, req.SourceAcademicYearID, req.TargetAcademicYearID)
	if err != nil {
		return nil, err
	}
	if err := s.assertCurrentYear(ctx, source.ID); err != nil {
		return nil, err
	}
	if err := s.validateYearSequence(source, target); err != nil {
		return nil, err
	}

	sourceEntry, err := s.ledger.FindByStudentAndYear(ctx, student.ID, source.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student has no enrollment in the source year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source enrollment")
	}
	exists, err := s.ledger.ExistsForYear(ctx, student.ID, target.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check target enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in the target year")
	}

	targetClass, err := s.loadClass(ctx, req.TargetClassID)
	if err != nil {
		return nil, err
	}
	targetSection, err := s.loadSectionOfClass(ctx, targetClass, req.TargetSectionID)
	if err != nil {
		return nil, err
	}

	entry := &models.Enrollment{
		StudentID:      student.ID,
		AcademicYearID: target.ID,
		ClassID:        targetClass.ID,
		SectionID:      targetSection.ID,
		RollNumber:     sourceEntry.RollNumber,
	}
	err = s.tx.Within(ctx, func(tx *sqlx.Tx) error {
		if err := s.ledger.CreateTx(ctx, tx, entry); err != nil {
			if repository.IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in the target year")
			}
			return err
		}
		return s.students.UpdatePlacementTx(ctx, tx, student.ID, models.StudentPlacement{
			ClassID:        targetClass.ID,
			SectionID:      targetSection.ID,
			AcademicYearID: target.ID,
			RollNumber:     entry.RollNumber,
		})
	})
	if err != nil {
		return nil, asAppError(err, "failed to promote student")
	}

	s.emitAudit(ctx, actorID, models.AuditActionPromotion, student.ID, entry)
	return entry, nil
}

// PromoteBulk promotes every candidate enrollment of a class in a single
// transaction. The target class falls back to the next class on the ladder
// and the target section to a name match when not given explicitly. Students
// already enrolled in the target year are skipped; a source section with no
// name match in the target class aborts the whole batch.
func (s *PromotionService) PromoteBulk(ctx context.Context, req dto.BulkPromotionRequest, actorID string) (*models.BulkPromotionResult, error) {
	source, target, err := s.loadYearPair(ctx, req.SourceAcademicYearID, req.TargetAcademicYearID)
	if err != nil {
		return nil, err
	}
	if err := s.assertCurrentYear(ctx, source.ID); err != nil {
		return nil, err
	}
	if err := s.validateYearSequence(source, target); err != nil {
		return nil, err
	}
	var targetClass *models.Class
	if req.TargetClassID != "" {
		targetClass, err = s.loadClass(ctx, req.TargetClassID)
	} else {
		targetClass, err = s.resolveTargetClass(ctx, req.ClassID)
	}
	if err != nil {
		return nil, err
	}
	var explicitSection *models.Section
	if req.TargetSectionID != "" {
		explicitSection, err = s.loadSectionOfClass(ctx, targetClass, req.TargetSectionID)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := s.ledger.ListCandidates(ctx, req.ClassID, source.ID, req.SectionID, req.StudentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to select promotion candidates")
	}

	result := &models.BulkPromotionResult{
		Selected:      len(candidates),
		TargetClassID: targetClass.ID,
	}
	if len(candidates) == 0 {
		return result, nil
	}

	// Section mapping is resolved lazily per distinct source section; the
	// first unmapped one fails the transaction.
	sectionByID := map[string]*models.Section{}
	err = s.tx.Within(ctx, func(tx *sqlx.Tx) error {
		for i := range candidates {
			candidate := &candidates[i]
			targetSection := explicitSection
			if targetSection == nil {
				mapped, ok := sectionByID[candidate.SectionID]
				if !ok {
					mapped, err = s.mapSectionByName(ctx, targetClass, candidate.SectionID)
					if err != nil {
						return err
					}
					sectionByID[candidate.SectionID] = mapped
				}
				targetSection = mapped
			}
			entry := &models.Enrollment{
				StudentID:      candidate.StudentID,
				AcademicYearID: target.ID,
				ClassID:        targetClass.ID,
				SectionID:      targetSection.ID,
				RollNumber:     candidate.RollNumber,
			}
			inserted, err := s.ledger.CreateTxSkipDuplicate(ctx, tx, entry)
			if err != nil {
				return err
			}
			result.Matched++
			if !inserted {
				continue
			}
			if err := s.students.UpdatePlacementTx(ctx, tx, candidate.StudentID, models.StudentPlacement{
				ClassID:        targetClass.ID,
				SectionID:      targetSection.ID,
				AcademicYearID: target.ID,
				RollNumber:     entry.RollNumber,
			}); err != nil {
				return err
			}
			result.Modified++
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to promote class")
	}
	if explicitSection != nil {
		result.TargetSectionID = explicitSection.ID
	} else if len(sectionByID) == 1 {
		for _, section := range sectionByID {
			result.TargetSectionID = section.ID
		}
	}

	s.emitAudit(ctx, actorID, models.AuditActionPromotion, req.ClassID, result)
	s.logger.Info("bulk promotion committed",
		zap.String("source_year", source.ID),
		zap.String("target_year", target.ID),
		zap.Int("selected", result.Selected),
		zap.Int("modified", result.Modified))
	return result, nil
}

// ReAdmitOne enrolls a returning student into any academic year with an
// explicit class and section and a freshly generated roll number. Unlike
// promotion there is no current-year or sequence gate; the only barrier is an
// existing ledger entry for the year.
func (s *PromotionService) ReAdmitOne(ctx context.Context, req dto.ReAdmissionRequest, actorID string) (*models.Enrollment, error) {
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	target, err := s.years.FindByID(ctx, req.TargetAcademicYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	class, err := s.loadClass(ctx, req.TargetClassID)
	if err != nil {
		return nil, err
	}
	section, err := s.loadSectionOfClass(ctx, class, req.TargetSectionID)
	if err != nil {
		return nil, err
	}
	exists, err := s.ledger.ExistsForYear(ctx, student.ID, target.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check target enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in the target year")
	}

	prefix := rollPrefix(class.Name, section.Name)
	entry := &models.Enrollment{
		StudentID:      student.ID,
		AcademicYearID: target.ID,
		ClassID:        class.ID,
		SectionID:      section.ID,
	}
	err = s.tx.Within(ctx, func(tx *sqlx.Tx) error {
		maxRoll, err := s.ledger.MaxRollNumberTx(ctx, tx, target.ID, prefix)
		if err != nil {
			return err
		}
		entry.RollNumber = nextRollNumber(prefix, maxRoll)
		if err := s.ledger.CreateTx(ctx, tx, entry); err != nil {
			if repository.IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in the target year")
			}
			return err
		}
		return s.students.UpdatePlacementTx(ctx, tx, student.ID, models.StudentPlacement{
			ClassID:        class.ID,
			SectionID:      section.ID,
			AcademicYearID: target.ID,
			RollNumber:     entry.RollNumber,
		})
	})
	if err != nil {
		return nil, asAppError(err, "failed to re-admit student")
	}

	s.emitAudit(ctx, actorID, models.AuditActionReAdmission, student.ID, entry)
	return entry, nil
}

// ReAdmitBulk re-admits every listed student in its own transaction. A
// failure is recorded in the report and never aborts the remaining students.
func (s *PromotionService) ReAdmitBulk(ctx context.Context, req dto.BulkReAdmissionRequest, actorID string) (*models.ReAdmissionReport, error) {
	report := &models.ReAdmissionReport{
		Total:  len(req.StudentIDs),
		Errors: []models.ReAdmissionError{},
	}
	for _, studentID := range req.StudentIDs {
		_, err := s.ReAdmitOne(ctx, dto.ReAdmissionRequest{
			StudentID:            studentID,
			TargetAcademicYearID: req.TargetAcademicYearID,
			TargetClassID:        req.TargetClassID,
			TargetSectionID:      req.TargetSectionID,
		}, actorID)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, models.ReAdmissionError{
				StudentID: studentID,
				Message:   appErrors.FromError(err).Message,
			})
			continue
		}
		report.Successful++
	}
	return report, nil
}

func (s *PromotionService) loadYearPair(ctx context.Context, sourceID, targetID string) (*models.AcademicYear, *models.AcademicYear, error) {
	source, err := s.years.FindByID(ctx, sourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "source academic year not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source academic year")
	}
	target, err := s.years.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "target academic year not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target academic year")
	}
	return source, target, nil
}

// assertCurrentYear verifies the year against the resolved current year so a
// stale client cannot promote out of a year that has already been closed.
func (s *PromotionService) assertCurrentYear(ctx context.Context, yearID string) error {
	years, err := s.years.Snapshot(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic years")
	}
	current := ResolveCurrentYear(years)
	if current == nil {
		return appErrors.Clone(appErrors.ErrValidation, "no current or active academic year configured")
	}
	if current.ID != yearID {
		return appErrors.Clone(appErrors.ErrValidation, "promotions must start from the current academic year")
	}
	return nil
}

// validateYearSequence ensures target immediately follows source. Explicit
// sequence numbers win; the "YYYY-YYYY" naming convention is the fallback;
// bare date ordering is accepted with a warning.
func (s *PromotionService) validateYearSequence(source, target *models.AcademicYear) error {
	if source.ID == target.ID {
		return appErrors.Clone(appErrors.ErrValidation, "target year must differ from the source year")
	}
	if source.Seq != nil && target.Seq != nil {
		if *target.Seq != *source.Seq+1 {
			return appErrors.Clone(appErrors.ErrValidation, "target year is not the successor of the source year")
		}
		return nil
	}
	if srcStart, srcEnd, ok := parseYearSpan(source.Name); ok {
		if tgtStart, tgtEnd, ok := parseYearSpan(target.Name); ok {
			if tgtStart == srcStart+1 && tgtEnd == srcEnd+1 {
				return nil
			}
			return appErrors.Clone(appErrors.ErrValidation, "target year name does not follow the source year")
		}
	}
	if target.StartDate.After(source.EndDate) {
		s.logger.Warn("year succession validated by date order only",
			zap.String("source", source.Name),
			zap.String("target", target.Name))
		return nil
	}
	return appErrors.Clone(appErrors.ErrValidation, "target year does not follow the source year")
}

func (s *PromotionService) resolveTargetClass(ctx context.Context, sourceClassID string) (*models.Class, error) {
	sourceClass, err := s.classes.FindByID(ctx, sourceClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "source class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source class")
	}
	if sourceClass.Seq == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class %s has no position in the class ladder", sourceClass.Name))
	}
	next, err := s.classes.FindNextBySeq(ctx, *sourceClass.Seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("class %s is the top of the ladder", sourceClass.Name))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve next class")
	}
	return next, nil
}

func (s *PromotionService) loadClass(ctx context.Context, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target class")
	}
	return class, nil
}

// loadSectionOfClass loads an explicitly requested section and checks it
// belongs to the target class.
func (s *PromotionService) loadSectionOfClass(ctx context.Context, class *models.Class, sectionID string) (*models.Section, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "target section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target section")
	}
	if section.ClassID != class.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target section does not belong to the target class")
	}
	return section, nil
}

// mapSectionByName finds the section of the target class whose name matches
// the source section case-insensitively.
func (s *PromotionService) mapSectionByName(ctx context.Context, targetClass *models.Class, sourceSectionID string) (*models.Section, error) {
	sourceSection, err := s.sections.FindByID(ctx, sourceSectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "source section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source section")
	}
	candidates, err := s.sections.FindByClass(ctx, targetClass.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list target sections")
	}
	for i := range candidates {
		if strings.EqualFold(candidates[i].Name, sourceSection.Name) {
			return &candidates[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf(
		"no section in class %s matches section %s (%q); specify a target section explicitly",
		targetClass.Name, sourceSection.ID, sourceSection.Name))
}

func (s *PromotionService) emitAudit(ctx context.Context, actorID, action, resourceID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	values, err := json.Marshal(payload)
	if err != nil {
		values = []byte("{}")
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "enrollment",
		ResourceID: &resourceID,
		NewValues:  values,
		IPAddress:  "system",
		UserAgent:  "promotion-service",
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// rollPrefix builds the "<CLASS>-<SECTION>-" roll number prefix.
func rollPrefix(className, sectionName string) string {
	return strings.ToUpper(strings.TrimSpace(className)) + "-" + strings.ToUpper(strings.TrimSpace(sectionName)) + "-"
}

// nextRollNumber increments the numeric suffix of the greatest existing roll
// number, starting at 001 for an empty prefix.
func nextRollNumber(prefix, maxRoll string) string {
	last := 0
	if maxRoll != "" && strings.HasPrefix(maxRoll, prefix) {
		if parsed, err := strconv.Atoi(strings.TrimPrefix(maxRoll, prefix)); err == nil {
			last = parsed
		}
	}
	return fmt.Sprintf("%s%03d", prefix, last+1)
}

// parseYearSpan parses academic year names of the form "2024-2025".
func parseYearSpan(name string) (int, int, bool) {
	parts := strings.SplitN(strings.TrimSpace(name), "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

func asAppError(err error, message string) *appErrors.Error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
