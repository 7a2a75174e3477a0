package dto

import "time"

// AttendanceEntry is one student's status within a bulk submission.
type AttendanceEntry struct {
	EnrollmentID string  `json:"enrollmentId" binding:"required"`
	Status       string  `json:"status" binding:"required"`
	Notes        *string `json:"notes"`
}

// UpsertAttendanceRequest records or corrects one attendance row.
type UpsertAttendanceRequest struct {
	EnrollmentID string    `json:"enrollmentId" binding:"required"`
	Date         time.Time `json:"date" binding:"required"`
	Status       string    `json:"status" binding:"required"`
	Notes        *string   `json:"notes"`
}

// BulkAttendanceRequest records a whole class for one date. Mode "atomic"
// aborts on the first duplicate, "partialOnError" skips and reports them.
type BulkAttendanceRequest struct {
	Date    time.Time         `json:"date" binding:"required"`
	Mode    string            `json:"mode"`
	Entries []AttendanceEntry `json:"entries" binding:"required,min=1"`
}
