package models

import "time"

// Class represents one level in the ordered class ladder. Seq defines the
// total ordering used to compute the next class during promotion.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Seq       *int      `db:"seq" json:"seq,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Section represents a named group within a class. Section names are unique
// per class (case-insensitive) and drive name-based mapping in bulk promotion.
type Section struct {
	ID                string    `db:"id" json:"id"`
	ClassID           string    `db:"class_id" json:"class_id"`
	Name              string    `db:"name" json:"name"`
	AssignedTeacherID *string   `db:"assigned_teacher_id" json:"assigned_teacher_id,omitempty"`
	Seq               *int      `db:"seq" json:"seq,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail extends Section with class and teacher names for responses.
type SectionDetail struct {
	Section
	ClassName   string  `db:"class_name" json:"class_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}
