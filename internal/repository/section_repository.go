package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sekolahku/sekolahku-api/internal/models"
)

// SectionRepository handles persistence for class sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a section by its ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, class_id, name, assigned_teacher_id, seq, created_at, updated_at FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindByClass returns every section of a class ordered by seq then name.
func (r *SectionRepository) FindByClass(ctx context.Context, classID string) ([]models.Section, error) {
	const query = `SELECT id, class_id, name, assigned_teacher_id, seq, created_at, updated_at FROM sections WHERE class_id = $1 ORDER BY seq ASC NULLS LAST, LOWER(name) ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, classID); err != nil {
		return nil, fmt.Errorf("list class sections: %w", err)
	}
	return sections, nil
}

// ListDetails returns sections of a class with class and teacher names.
func (r *SectionRepository) ListDetails(ctx context.Context, classID string) ([]models.SectionDetail, error) {
	const query = `SELECT sec.id, sec.class_id, sec.name, sec.assigned_teacher_id, sec.seq, sec.created_at, sec.updated_at,
        c.name AS class_name, u.full_name AS teacher_name
        FROM sections sec
        JOIN classes c ON c.id = sec.class_id
        LEFT JOIN users u ON u.id = sec.assigned_teacher_id
        WHERE sec.class_id = $1
        ORDER BY sec.seq ASC NULLS LAST, LOWER(sec.name) ASC`
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, classID); err != nil {
		return nil, fmt.Errorf("list section details: %w", err)
	}
	return sections, nil
}

// ExistsByName checks (class_id, name) uniqueness case-insensitively.
func (r *SectionRepository) ExistsByName(ctx context.Context, classID, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM sections WHERE class_id = $1 AND LOWER(name) = LOWER($2)"
	args := []interface{}{classID, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check section name: %w", err)
	}
	return true, nil
}

// Create inserts a new section record.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if section.CreatedAt.IsZero() {
		section.CreatedAt = now
	}
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, class_id, name, assigned_teacher_id, seq, created_at, updated_at) VALUES (:id, :class_id, :name, :assigned_teacher_id, :seq, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies an existing section.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET name = :name, assigned_teacher_id = :assigned_teacher_id, seq = :seq, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Delete removes a section permanently.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}
