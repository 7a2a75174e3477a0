package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByNIS(ctx context.Context, nis, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentEnrollmentHistory interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

// CreateStudentRequest holds payload for registering students. Placement is
// never part of registration; students enter a year through re-admission or
// promotion.
type CreateStudentRequest struct {
	NIS       string    `json:"nis" validate:"required"`
	FullName  string    `json:"full_name" validate:"required"`
	Gender    string    `json:"gender" validate:"required,oneof=M F"`
	BirthDate time.Time `json:"birth_date" validate:"required"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
}

// UpdateStudentRequest holds payload for updating student bio data.
type UpdateStudentRequest struct {
	NIS       string    `json:"nis" validate:"required"`
	FullName  string    `json:"full_name" validate:"required"`
	Gender    string    `json:"gender" validate:"required,oneof=M F"`
	BirthDate time.Time `json:"birth_date" validate:"required"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	history   studentEnrollmentHistory
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, history studentEnrollmentHistory, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, history: history, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns detailed student information with resolved placement names.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// History returns the full enrollment ledger of a student, newest first.
func (s *StudentService) History(ctx context.Context, id string) ([]models.EnrollmentDetail, error) {
	if _, err := s.repo.FindDetailByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	entries, _, err := s.history.List(ctx, models.EnrollmentFilter{
		StudentID: id,
		Page:      1,
		PageSize:  100,
		SortBy:    "created_at",
		SortOrder: "DESC",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	return entries, nil
}

// Create registers a new student without placement.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.ExistsByNIS(ctx, req.NIS, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate nis")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "nis already used")
	}
	student := &models.Student{
		NIS:       req.NIS,
		FullName:  req.FullName,
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
		Address:   req.Address,
		Phone:     req.Phone,
		Active:    true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies bio data of an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByNIS(ctx, req.NIS, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate nis")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "nis already used")
	}
	student := detail.Student
	student.NIS = req.NIS
	student.FullName = req.FullName
	student.Gender = req.Gender
	student.BirthDate = req.BirthDate
	student.Address = req.Address
	student.Phone = req.Phone
	student.Active = req.Active
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return &student, nil
}

// Deactivate marks a student inactive; the enrollment ledger is untouched.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindDetailByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}
