package models

import "time"

// Student represents a learner registered in the institution. The class,
// section, academic year and roll number columns form the placement snapshot:
// a mutable cache of the latest enrollment ledger entry, never the history.
type Student struct {
	ID             string    `db:"id" json:"id"`
	NIS            string    `db:"nis" json:"nis"`
	FullName       string    `db:"full_name" json:"full_name"`
	Gender         string    `db:"gender" json:"gender"`
	BirthDate      time.Time `db:"birth_date" json:"birth_date"`
	Address        string    `db:"address" json:"address"`
	Phone          string    `db:"phone" json:"phone"`
	Active         bool      `db:"active" json:"active"`
	ClassID        *string   `db:"class_id" json:"class_id,omitempty"`
	SectionID      *string   `db:"section_id" json:"section_id,omitempty"`
	AcademicYearID *string   `db:"academic_year_id" json:"academic_year_id,omitempty"`
	RollNumber     *string   `db:"roll_number" json:"roll_number,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search         string
	ClassID        string
	SectionID      string
	AcademicYearID string
	Active         *bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// StudentDetail contains student information with resolved placement names.
type StudentDetail struct {
	Student
	ClassName        *string `db:"class_name" json:"class_name,omitempty"`
	SectionName      *string `db:"section_name" json:"section_name,omitempty"`
	AcademicYearName *string `db:"academic_year_name" json:"academic_year_name,omitempty"`
}

// StudentPlacement captures the snapshot fields written after a promotion or
// re-admission commits.
type StudentPlacement struct {
	ClassID        string
	SectionID      string
	AcademicYearID string
	RollNumber     string
}
