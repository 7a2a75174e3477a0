package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sekolahku/sekolahku-api/internal/models"
)

const academicYearColumns = "id, name, start_date, end_date, is_active, is_current, seq, created_at, updated_at"

// AcademicYearRepository handles persistence for academic years.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository instantiates the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// List returns academic years matching provided filters.
func (r *AcademicYearRepository) List(ctx context.Context, filter models.AcademicYearFilter) ([]models.AcademicYear, int, error) {
	base := "FROM academic_years WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"start_date": true,
		"end_date":   true,
		"seq":        true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_date"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", academicYearColumns, base, sortBy, order, size, offset)

	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list academic years: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count academic years: %w", err)
	}

	return years, total, nil
}

// FindByID loads an academic year by identifier.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years WHERE id = $1", academicYearColumns)
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// Snapshot returns every academic year row. Current-year resolution works on
// this snapshot so the fallback heuristic sees one consistent view.
func (r *AcademicYearRepository) Snapshot(ctx context.Context) ([]models.AcademicYear, error) {
	query := fmt.Sprintf("SELECT %s FROM academic_years ORDER BY start_date", academicYearColumns)
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("snapshot academic years: %w", err)
	}
	return years, nil
}

// ExistsByName checks name uniqueness, optionally excluding one record.
func (r *AcademicYearRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM academic_years WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check academic year name: %w", err)
	}
	return true, nil
}

// Create inserts a new academic year record.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if year.CreatedAt.IsZero() {
		year.CreatedAt = now
	}
	year.UpdatedAt = now

	const query = `INSERT INTO academic_years (id, name, start_date, end_date, is_active, is_current, seq, created_at, updated_at) VALUES (:id, :name, :start_date, :end_date, :is_active, :is_current, :seq, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

// Update modifies an existing academic year.
func (r *AcademicYearRepository) Update(ctx context.Context, year *models.AcademicYear) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_years SET name = :name, start_date = :start_date, end_date = :end_date, is_active = :is_active, seq = :seq, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	return nil
}

// SetCurrent flags the provided year as current and unflags the rest. The
// unset happens first so the partial unique index never sees two rows.
func (r *AcademicYearRepository) SetCurrent(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2`, now, id); err != nil {
		return fmt.Errorf("unset current years: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = TRUE, is_active = TRUE, updated_at = $2 WHERE id = $1`, id, now); err != nil {
		return fmt.Errorf("set current year: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set current tx: %w", err)
	}
	return nil
}

// SetActive toggles the soft-delete flag.
func (r *AcademicYearRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE academic_years SET is_active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set academic year active: %w", err)
	}
	return nil
}

// Delete removes an academic year permanently.
func (r *AcademicYearRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_years WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete academic year: %w", err)
	}
	return nil
}

// CountEnrollments returns the number of ledger entries referencing the year.
func (r *AcademicYearRepository) CountEnrollments(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE academic_year_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count year enrollments: %w", err)
	}
	return count, nil
}
