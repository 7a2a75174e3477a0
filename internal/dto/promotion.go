package dto

// PromoteStudentRequest promotes a single student from one academic year to
// the next. The target class and section are always explicit; single
// promotion never infers a placement.
type PromoteStudentRequest struct {
	StudentID            string `json:"studentId" binding:"required"`
	SourceAcademicYearID string `json:"sourceAcademicYearId" binding:"required"`
	TargetAcademicYearID string `json:"targetAcademicYearId" binding:"required"`
	TargetClassID        string `json:"targetClassId" binding:"required"`
	TargetSectionID      string `json:"targetSectionId" binding:"required"`
}

// BulkPromotionRequest promotes every matching enrollment of a class in one
// transaction. SectionID and StudentIDs narrow the candidate set. An empty
// TargetClassID falls back to the next class on the ladder and an empty
// TargetSectionID to name-based section mapping.
type BulkPromotionRequest struct {
	ClassID              string   `json:"classId" binding:"required"`
	SectionID            string   `json:"sectionId"`
	StudentIDs           []string `json:"studentIds"`
	SourceAcademicYearID string   `json:"sourceAcademicYearId" binding:"required"`
	TargetAcademicYearID string   `json:"targetAcademicYearId" binding:"required"`
	TargetClassID        string   `json:"targetClassId"`
	TargetSectionID      string   `json:"targetSectionId"`
}

// ReAdmissionRequest places a student into the current academic year with an
// explicit class and section, generating a fresh roll number.
type ReAdmissionRequest struct {
	StudentID            string `json:"studentId" binding:"required"`
	TargetAcademicYearID string `json:"targetAcademicYearId" binding:"required"`
	TargetClassID        string `json:"targetClassId" binding:"required"`
	TargetSectionID      string `json:"targetSectionId" binding:"required"`
}

// BulkReAdmissionRequest re-admits many students individually; failures do
// not abort the batch.
type BulkReAdmissionRequest struct {
	StudentIDs           []string `json:"studentIds" binding:"required,min=1"`
	TargetAcademicYearID string   `json:"targetAcademicYearId" binding:"required"`
	TargetClassID        string   `json:"targetClassId" binding:"required"`
	TargetSectionID      string   `json:"targetSectionId" binding:"required"`
}
