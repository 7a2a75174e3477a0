package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sekolahku/sekolahku-api/internal/models"
)

const feePaymentColumns = `id, student_id, academic_year_id, description, amount_cents, status, gateway_ref, payment_url, paid_at, created_at, updated_at`

// FeePaymentRepository handles persistence for fee payments.
type FeePaymentRepository struct {
	db *sqlx.DB
}

// NewFeePaymentRepository constructs the repository.
func NewFeePaymentRepository(db *sqlx.DB) *FeePaymentRepository {
	return &FeePaymentRepository{db: db}
}

// List returns fee payments matching the filter.
func (r *FeePaymentRepository) List(ctx context.Context, filter models.FeePaymentFilter) ([]models.FeePayment, int, error) {
	base := "FROM fee_payments"
	where := []string{"1=1"}
	var args []interface{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.AcademicYearID != "" {
		where = append(where, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d", feePaymentColumns, base, whereClause, size, offset)
	var payments []models.FeePayment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee payments: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee payments: %w", err)
	}
	return payments, total, nil
}

// FindByID returns a fee payment by identifier.
func (r *FeePaymentRepository) FindByID(ctx context.Context, id string) (*models.FeePayment, error) {
	query := fmt.Sprintf("SELECT %s FROM fee_payments WHERE id = $1", feePaymentColumns)
	var payment models.FeePayment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByGatewayRef returns a fee payment by the gateway's reference.
func (r *FeePaymentRepository) FindByGatewayRef(ctx context.Context, ref string) (*models.FeePayment, error) {
	query := fmt.Sprintf("SELECT %s FROM fee_payments WHERE gateway_ref = $1", feePaymentColumns)
	var payment models.FeePayment
	if err := r.db.GetContext(ctx, &payment, query, ref); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Create inserts a new fee payment.
func (r *FeePaymentRepository) Create(ctx context.Context, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	if payment.Status == "" {
		payment.Status = models.FeePaymentStatusPending
	}
	query := `INSERT INTO fee_payments (id, student_id, academic_year_id, description, amount_cents, status, gateway_ref, payment_url, paid_at, created_at, updated_at)
VALUES (:id, :student_id, :academic_year_id, :description, :amount_cents, :status, :gateway_ref, :payment_url, :paid_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create fee payment: %w", err)
	}
	return nil
}

// AttachGateway stores the gateway reference and payment URL after creation.
func (r *FeePaymentRepository) AttachGateway(ctx context.Context, id, gatewayRef, paymentURL string) error {
	const query = `UPDATE fee_payments SET gateway_ref = $2, payment_url = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, gatewayRef, paymentURL, time.Now().UTC()); err != nil {
		return fmt.Errorf("attach gateway ref: %w", err)
	}
	return nil
}

// UpdateStatus transitions a payment out of PENDING. Repeating a transition
// is a no-op so webhook retries stay idempotent.
func (r *FeePaymentRepository) UpdateStatus(ctx context.Context, id string, status models.FeePaymentStatus, paidAt *time.Time) (bool, error) {
	const query = `UPDATE fee_payments SET status = $2, paid_at = $3, updated_at = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, status, paidAt, time.Now().UTC(), models.FeePaymentStatusPending)
	if err != nil {
		return false, fmt.Errorf("update fee payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update fee payment status: %w", err)
	}
	return affected > 0, nil
}
