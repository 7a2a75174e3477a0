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

// EnrollmentRepository persists the placement ledger. Rows are append-only:
// there is no update method on purpose.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns ledger entries filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN classes c ON c.id = e.class_id
LEFT JOIN sections sec ON sec.id = e.section_id
LEFT JOIN academic_years ay ON ay.id = e.academic_year_id`
	where := []string{"1=1"}
	var args []interface{}

	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SectionID != "" {
		where = append(where, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.AcademicYearID != "" {
		where = append(where, fmt.Sprintf("e.academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSorts := map[string]string{
		"created_at":   "e.created_at",
		"roll_number":  "e.roll_number",
		"student_name": "s.full_name",
	}
	sortColumn, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortColumn = "e.created_at"
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

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.academic_year_id, e.class_id, e.section_id, e.roll_number, e.created_at,
        s.full_name AS student_name, s.nis AS student_nis, c.name AS class_name, sec.name AS section_name, ay.name AS academic_year_name
        %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, sortColumn, order, size, offset)

	var entries []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return entries, total, nil
}

// FindByStudentAndYear returns the ledger entry for one student and year.
func (r *EnrollmentRepository) FindByStudentAndYear(ctx context.Context, studentID, yearID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, academic_year_id, class_id, section_id, roll_number, created_at FROM enrollments WHERE student_id = $1 AND academic_year_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, yearID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsForYear reports whether a ledger entry exists for (student, year).
func (r *EnrollmentRepository) ExistsForYear(ctx context.Context, studentID, yearID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND academic_year_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, yearID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ListCandidates selects promotion candidates from the ledger for a class and
// year, optionally narrowed by section and explicit student ids.
func (r *EnrollmentRepository) ListCandidates(ctx context.Context, classID, yearID, sectionID string, studentIDs []string) ([]models.Enrollment, error) {
	query := `SELECT id, student_id, academic_year_id, class_id, section_id, roll_number, created_at FROM enrollments WHERE class_id = $1 AND academic_year_id = $2`
	args := []interface{}{classID, yearID}
	if sectionID != "" {
		query += fmt.Sprintf(" AND section_id = $%d", len(args)+1)
		args = append(args, sectionID)
	}
	if len(studentIDs) > 0 {
		placeholders := make([]string, len(studentIDs))
		for i, id := range studentIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND student_id IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY roll_number ASC"

	var entries []models.Enrollment
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list promotion candidates: %w", err)
	}
	return entries, nil
}

// CreateTx appends a ledger row within the caller's transaction. Unique index
// violations propagate to the caller untouched.
func (r *EnrollmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	prepareEnrollment(enrollment)
	const query = `INSERT INTO enrollments (id, student_id, academic_year_id, class_id, section_id, roll_number, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, query, enrollment.ID, enrollment.StudentID, enrollment.AcademicYearID, enrollment.ClassID, enrollment.SectionID, enrollment.RollNumber, enrollment.CreatedAt); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// CreateTxSkipDuplicate appends a ledger row, silently skipping an existing
// (student, year) entry. Returns false when the row was skipped.
func (r *EnrollmentRepository) CreateTxSkipDuplicate(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) (bool, error) {
	prepareEnrollment(enrollment)
	const query = `INSERT INTO enrollments (id, student_id, academic_year_id, class_id, section_id, roll_number, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (student_id, academic_year_id) DO NOTHING RETURNING id`
	var insertedID string
	if err := tx.QueryRowxContext(ctx, query, enrollment.ID, enrollment.StudentID, enrollment.AcademicYearID, enrollment.ClassID, enrollment.SectionID, enrollment.RollNumber, enrollment.CreatedAt).Scan(&insertedID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("create enrollment: %w", err)
	}
	return true, nil
}

// MaxRollNumberTx returns the greatest roll number sharing the prefix within
// the year. The sort is lexicographic, matching the generator's expectations
// for 3-digit suffixes.
func (r *EnrollmentRepository) MaxRollNumberTx(ctx context.Context, tx *sqlx.Tx, yearID, prefix string) (string, error) {
	const query = `SELECT roll_number FROM enrollments WHERE academic_year_id = $1 AND roll_number LIKE $2 ESCAPE '\' ORDER BY roll_number DESC LIMIT 1`
	var roll string
	if err := tx.GetContext(ctx, &roll, query, yearID, escapeLikePattern(prefix)+"%"); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("max roll number: %w", err)
	}
	return roll, nil
}

// escapeLikePattern neutralizes LIKE wildcards in a literal prefix. Class and
// section names flow into roll prefixes unfiltered, so a name containing "%"
// or "_" must not widen the match.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func prepareEnrollment(enrollment *models.Enrollment) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
}
