package models

import "time"

// AcademicYear models one school year in the institution calendar.
// At most one year is flagged current at any time; the database enforces this
// with a partial unique index on (is_current) WHERE is_current.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	Seq       *int      `db:"seq" json:"seq,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AcademicYearFilter defines filters supported by list endpoints.
type AcademicYearFilter struct {
	IsActive  *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
