package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type feeRepository interface {
	List(ctx context.Context, filter models.FeePaymentFilter) ([]models.FeePayment, int, error)
	FindByID(ctx context.Context, id string) (*models.FeePayment, error)
	FindByGatewayRef(ctx context.Context, ref string) (*models.FeePayment, error)
	Create(ctx context.Context, payment *models.FeePayment) error
	AttachGateway(ctx context.Context, id, gatewayRef, paymentURL string) error
	UpdateStatus(ctx context.Context, id string, status models.FeePaymentStatus, paidAt *time.Time) (bool, error)
}

type feeStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateFeePaymentRequest holds payload for charging a student.
type CreateFeePaymentRequest struct {
	StudentID      string `json:"student_id" validate:"required"`
	AcademicYearID string `json:"academic_year_id" validate:"required"`
	Description    string `json:"description" validate:"required"`
	AmountCents    int64  `json:"amount_cents" validate:"required,gt=0"`
}

// WebhookEvent is the provider callback payload.
type WebhookEvent struct {
	Ref    string     `json:"ref"`
	Status string     `json:"status"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// FeeService manages fee charges and gateway callbacks.
type FeeService struct {
	repo     feeRepository
	students feeStudentReader
	gateway  PaymentGateway
	logger   *zap.Logger
}

// NewFeeService constructs the service. A nil gateway disables charging but
// keeps reads working.
func NewFeeService(repo feeRepository, students feeStudentReader, gateway PaymentGateway, logger *zap.Logger) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{repo: repo, students: students, gateway: gateway, logger: logger}
}

// List returns fee payments and pagination metadata.
func (s *FeeService) List(ctx context.Context, filter models.FeePaymentFilter) ([]models.FeePayment, *models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee payments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return payments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one fee payment.
func (s *FeeService) Get(ctx context.Context, id string) (*models.FeePayment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee payment")
	}
	return payment, nil
}

// Charge creates a pending payment and registers it with the gateway.
func (s *FeeService) Charge(ctx context.Context, req CreateFeePaymentRequest) (*models.FeePayment, error) {
	if s.gateway == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "payments are disabled")
	}
	if req.AmountCents <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	payment := &models.FeePayment{
		StudentID:      req.StudentID,
		AcademicYearID: req.AcademicYearID,
		Description:    req.Description,
		AmountCents:    req.AmountCents,
		Status:         models.FeePaymentStatusPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee payment")
	}
	ref, paymentURL, err := s.gateway.CreateCharge(ctx, payment)
	if err != nil {
		s.logger.Error("payment gateway charge failed", zap.String("payment_id", payment.ID), zap.Error(err))
		if _, ferr := s.repo.UpdateStatus(ctx, payment.ID, models.FeePaymentStatusFailed, nil); ferr != nil {
			s.logger.Warn("failed to mark payment failed", zap.Error(ferr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register payment with gateway")
	}
	if err := s.repo.AttachGateway(ctx, payment.ID, ref, paymentURL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store gateway reference")
	}
	payment.GatewayRef = &ref
	payment.PaymentURL = &paymentURL
	return payment, nil
}

// HandleWebhook processes a provider status callback. Retries of an already
// processed event are acknowledged without a second transition.
func (s *FeeService) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	payment, err := s.repo.FindByGatewayRef(ctx, event.Ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "unknown payment reference")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	var status models.FeePaymentStatus
	var paidAt *time.Time
	switch event.Status {
	case "paid":
		status = models.FeePaymentStatusPaid
		ts := time.Now().UTC()
		if event.PaidAt != nil {
			ts = event.PaidAt.UTC()
		}
		paidAt = &ts
	case "failed":
		status = models.FeePaymentStatusFailed
	case "expired":
		status = models.FeePaymentStatusExpired
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unsupported webhook status")
	}
	transitioned, err := s.repo.UpdateStatus(ctx, payment.ID, status, paidAt)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment status")
	}
	if !transitioned {
		s.logger.Info("webhook ignored, payment already settled",
			zap.String("payment_id", payment.ID),
			zap.String("status", string(payment.Status)))
	}
	return nil
}
