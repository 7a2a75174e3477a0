package models

// BulkPromotionResult summarises a bulk promotion transaction.
type BulkPromotionResult struct {
	Selected        int    `json:"selected"`
	Matched         int    `json:"matched"`
	Modified        int    `json:"modified"`
	TargetClassID   string `json:"target_class_id"`
	TargetSectionID string `json:"target_section_id,omitempty"`
}

// ReAdmissionError records a single student failure within a bulk re-admission.
type ReAdmissionError struct {
	StudentID string `json:"student_id"`
	Message   string `json:"message"`
}

// ReAdmissionReport is the partial-failure report for bulk re-admission.
type ReAdmissionReport struct {
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Errors     []ReAdmissionError `json:"errors"`
}
