package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekolahku/sekolahku-api/internal/models"
	"github.com/sekolahku/sekolahku-api/internal/repository"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
	CountEnrollments(ctx context.Context, id string) (int, error)
}

type sectionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindByClass(ctx context.Context, classID string) ([]models.Section, error)
	ListDetails(ctx context.Context, classID string) ([]models.SectionDetail, error)
	ExistsByName(ctx context.Context, classID, name, excludeID string) (bool, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) error
}

// CreateClassRequest holds payload for creating classes.
type CreateClassRequest struct {
	Name string `json:"name" validate:"required"`
	Seq  *int   `json:"seq"`
}

// UpdateClassRequest holds payload for updating classes.
type UpdateClassRequest struct {
	Name string `json:"name" validate:"required"`
	Seq  *int   `json:"seq"`
}

// CreateSectionRequest holds payload for creating sections within a class.
type CreateSectionRequest struct {
	Name              string  `json:"name" validate:"required"`
	AssignedTeacherID *string `json:"assigned_teacher_id"`
	Seq               *int    `json:"seq"`
}

// UpdateSectionRequest holds payload for updating sections.
type UpdateSectionRequest struct {
	Name              string  `json:"name" validate:"required"`
	AssignedTeacherID *string `json:"assigned_teacher_id"`
	Seq               *int    `json:"seq"`
}

// ClassService manages the class ladder and its sections.
type ClassService struct {
	classes   classRepository
	sections  sectionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(classes classRepository, sections sectionRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, sections: sections, validator: validate, logger: logger}
}

// List returns classes ordered by ladder position.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a class by identifier.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a new class.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	exists, err := s.classes.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class name already used")
	}
	class := &models.Class{Name: req.Name, Seq: req.Seq}
	if err := s.classes.Create(ctx, class); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class name already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update modifies an existing class.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.classes.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class name already used")
	}
	class.Name = req.Name
	class.Seq = req.Seq
	if err := s.classes.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class with no ledger references.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.classes.CountEnrollments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "class has enrollments and cannot be deleted")
	}
	if err := s.classes.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// Sections lists the sections of a class with resolved names.
func (s *ClassService) Sections(ctx context.Context, classID string) ([]models.SectionDetail, error) {
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}
	sections, err := s.sections.ListDetails(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, nil
}

// CreateSection registers a section under a class. Names are unique within
// the class, case-insensitively; the name match is what bulk promotion maps
// sections with.
func (s *ClassService) CreateSection(ctx context.Context, classID string, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	if _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}
	exists, err := s.sections.ExistsByName(ctx, classID, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate section name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section name already used in this class")
	}
	section := &models.Section{
		ClassID:           classID,
		Name:              req.Name,
		AssignedTeacherID: req.AssignedTeacherID,
		Seq:               req.Seq,
	}
	if err := s.sections.Create(ctx, section); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "section name already used in this class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// UpdateSection modifies a section.
func (s *ClassService) UpdateSection(ctx context.Context, id string, req UpdateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	section, err := s.sections.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	exists, err := s.sections.ExistsByName(ctx, section.ClassID, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate section name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section name already used in this class")
	}
	section.Name = req.Name
	section.AssignedTeacherID = req.AssignedTeacherID
	section.Seq = req.Seq
	if err := s.sections.Update(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return section, nil
}

// DeleteSection removes a section.
func (s *ClassService) DeleteSection(ctx context.Context, id string) error {
	if _, err := s.sections.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if err := s.sections.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	return nil
}
