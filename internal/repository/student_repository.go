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

const studentColumns = "id, nis, full_name, gender, birth_date, address, phone, active, class_id, section_id, academic_year_id, roll_number, created_at, updated_at"

// StudentRepository handles persistence for students and their placement
// snapshot columns.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students filtered by the provided criteria.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
LEFT JOIN classes c ON c.id = s.class_id
LEFT JOIN sections sec ON sec.id = s.section_id
LEFT JOIN academic_years ay ON ay.id = s.academic_year_id`
	where := []string{"1=1"}
	var args []interface{}

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR s.nis LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SectionID != "" {
		where = append(where, fmt.Sprintf("s.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.AcademicYearID != "" {
		where = append(where, fmt.Sprintf("s.academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":   "s.full_name",
		"nis":         "s.nis",
		"roll_number": "s.roll_number",
		"created_at":  "s.created_at",
	}
	sortColumn, ok := allowedSorts[sortBy]
	if !ok {
		sortColumn = "s.full_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT s.id, s.nis, s.full_name, s.gender, s.birth_date, s.address, s.phone, s.active,
        s.class_id, s.section_id, s.academic_year_id, s.roll_number, s.created_at, s.updated_at,
        c.name AS class_name, sec.name AS section_name, ay.name AS academic_year_name
        %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindDetailByID returns a student with resolved placement names.
func (r *StudentRepository) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	const query = `SELECT s.id, s.nis, s.full_name, s.gender, s.birth_date, s.address, s.phone, s.active,
        s.class_id, s.section_id, s.academic_year_id, s.roll_number, s.created_at, s.updated_at,
        c.name AS class_name, sec.name AS section_name, ay.name AS academic_year_name
        FROM students s
        LEFT JOIN classes c ON c.id = s.class_id
        LEFT JOIN sections sec ON sec.id = s.section_id
        LEFT JOIN academic_years ay ON ay.id = s.academic_year_id
        WHERE s.id = $1`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByIDs returns students for the provided identifiers.
func (r *StudentRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s FROM students WHERE id IN (%s)", studentColumns, strings.Join(placeholders, ","))
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students by ids: %w", err)
	}
	return students, nil
}

// ExistsByNIS checks NIS uniqueness, optionally excluding one student.
func (r *StudentRepository) ExistsByNIS(ctx context.Context, nis, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE nis = $1"
	args := []interface{}{nis}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student nis: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	const query = `INSERT INTO students (id, nis, full_name, gender, birth_date, address, phone, active, class_id, section_id, academic_year_id, roll_number, created_at, updated_at)
        VALUES (:id, :nis, :full_name, :gender, :birth_date, :address, :phone, :active, :class_id, :section_id, :academic_year_id, :roll_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update updates biographical fields of a student. Placement snapshot columns
// change only through UpdatePlacementTx.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET nis = :nis, full_name = :full_name, gender = :gender, birth_date = :birth_date, address = :address, phone = :phone, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete performs a soft delete by marking the student inactive.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// UpdatePlacementTx writes the placement snapshot within the caller's
// transaction so ledger row and snapshot commit or roll back together. A new
// placement always reactivates the student.
func (r *StudentRepository) UpdatePlacementTx(ctx context.Context, tx *sqlx.Tx, studentID string, placement models.StudentPlacement) error {
	const query = `UPDATE students SET class_id = $2, section_id = $3, academic_year_id = $4, roll_number = $5, active = TRUE, updated_at = $6 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, studentID, placement.ClassID, placement.SectionID, placement.AcademicYearID, placement.RollNumber, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student placement: %w", err)
	}
	return nil
}
