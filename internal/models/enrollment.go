package models

import "time"

// Enrollment is one row of the placement ledger: a student's binding to a
// class, section and roll number for a single academic year. The ledger is
// append-only; rows for past years are never edited. Uniqueness is enforced on
// (student_id, academic_year_id) and on (academic_year_id, roll_number).
type Enrollment struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	ClassID        string    `db:"class_id" json:"class_id"`
	SectionID      string    `db:"section_id" json:"section_id"`
	RollNumber     string    `db:"roll_number" json:"roll_number"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentDetail enriches Enrollment with student and placement names.
type EnrollmentDetail struct {
	Enrollment
	StudentName      string `db:"student_name" json:"student_name"`
	StudentNIS       string `db:"student_nis" json:"student_nis"`
	ClassName        string `db:"class_name" json:"class_name"`
	SectionName      string `db:"section_name" json:"section_name"`
	AcademicYearName string `db:"academic_year_name" json:"academic_year_name"`
}

// EnrollmentFilter provides filters for listing ledger entries.
type EnrollmentFilter struct {
	StudentID      string
	ClassID        string
	SectionID      string
	AcademicYearID string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
