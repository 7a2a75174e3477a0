package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekolahku/sekolahku-api/internal/models"
	"github.com/sekolahku/sekolahku-api/internal/repository"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type academicYearRepository interface {
	List(ctx context.Context, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error)
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
	Snapshot(ctx context.Context) ([]models.AcademicYear, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Update(ctx context.Context, year *models.AcademicYear) error
	SetCurrent(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	CountEnrollments(ctx context.Context, id string) (int, error)
}

// CreateAcademicYearRequest holds payload for creating years.
type CreateAcademicYearRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	Seq       *int      `json:"seq"`
}

// UpdateAcademicYearRequest holds payload for updating years.
type UpdateAcademicYearRequest struct {
	Name      string    `json:"name" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	Seq       *int      `json:"seq"`
	IsActive  bool      `json:"is_active"`
}

// AcademicYearService manages the institution's year directory.
type AcademicYearService struct {
	repo      academicYearRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAcademicYearService constructs the service.
func NewAcademicYearService(repo academicYearRepository, validate *validator.Validate, logger *zap.Logger) *AcademicYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{repo: repo, validator: validate, logger: logger}
}

// List returns years and pagination metadata.
func (s *AcademicYearService) List(ctx context.Context, filter models.AcademicYearFilter) ([]models.AcademicYear, *models.Pagination, error) {
	years, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return years, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a year by identifier.
func (s *AcademicYearService) Get(ctx context.Context, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return year, nil
}

// Current resolves the effective current year from the full directory.
func (s *AcademicYearService) Current(ctx context.Context) (*models.AcademicYear, error) {
	years, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic years")
	}
	current := ResolveCurrentYear(years)
	if current == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no current academic year configured")
	}
	return current, nil
}

// Create registers a new academic year.
func (s *AcademicYearService) Create(ctx context.Context, req CreateAcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	exists, err := s.repo.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "academic year name already used")
	}
	year := &models.AcademicYear{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Seq:       req.Seq,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, year); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "academic year name already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}
	return year, nil
}

// Update modifies an existing year.
func (s *AcademicYearService) Update(ctx context.Context, id string, req UpdateAcademicYearRequest) (*models.AcademicYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	year, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "academic year name already used")
	}
	year.Name = req.Name
	year.StartDate = req.StartDate
	year.EndDate = req.EndDate
	year.Seq = req.Seq
	year.IsActive = req.IsActive
	if err := s.repo.Update(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic year")
	}
	return year, nil
}

// SetCurrent flags one year as current, unflagging every other year in the
// same transaction.
func (s *AcademicYearService) SetCurrent(ctx context.Context, id string) (*models.AcademicYear, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.SetCurrent(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current academic year")
	}
	return s.Get(ctx, id)
}

// SetActive toggles the active flag. The current year cannot be deactivated.
func (s *AcademicYearService) SetActive(ctx context.Context, id string, active bool) (*models.AcademicYear, error) {
	year, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !active && year.IsCurrent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "current academic year cannot be deactivated")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic year")
	}
	year.IsActive = active
	return year, nil
}

// Delete removes a year that is neither current nor referenced by the ledger.
func (s *AcademicYearService) Delete(ctx context.Context, id string) error {
	year, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if year.IsCurrent {
		return appErrors.Clone(appErrors.ErrValidation, "current academic year cannot be deleted")
	}
	count, err := s.repo.CountEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "academic year has enrollments and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete academic year")
	}
	return nil
}
