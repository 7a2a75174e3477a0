package models

import "time"

// FeePaymentStatus tracks the lifecycle of a gateway payment.
type FeePaymentStatus string

const (
	FeePaymentStatusPending FeePaymentStatus = "PENDING"
	FeePaymentStatusPaid    FeePaymentStatus = "PAID"
	FeePaymentStatusFailed  FeePaymentStatus = "FAILED"
	FeePaymentStatusExpired FeePaymentStatus = "EXPIRED"
)

// FeePayment represents one fee charge for a student within an academic year.
type FeePayment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	Description    string           `db:"description" json:"description"`
	AmountCents    int64            `db:"amount_cents" json:"amount_cents"`
	Status         FeePaymentStatus `db:"status" json:"status"`
	GatewayRef     *string          `db:"gateway_ref" json:"gateway_ref,omitempty"`
	PaymentURL     *string          `db:"payment_url" json:"payment_url,omitempty"`
	PaidAt         *time.Time       `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// FeePaymentFilter provides filters for listing fee payments.
type FeePaymentFilter struct {
	StudentID      string
	AcademicYearID string
	Status         FeePaymentStatus
	Page           int
	PageSize       int
}
