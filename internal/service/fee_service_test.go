package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sekolahku/sekolahku-api/internal/models"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
)

type feeRepoStub struct {
	payments map[string]*models.FeePayment
	byRef    map[string]string
}

func newFeeRepoStub() *feeRepoStub {
	return &feeRepoStub{payments: map[string]*models.FeePayment{}, byRef: map[string]string{}}
}

func (r *feeRepoStub) List(ctx context.Context, filter models.FeePaymentFilter) ([]models.FeePayment, int, error) {
	var result []models.FeePayment
	for _, p := range r.payments {
		result = append(result, *p)
	}
	return result, len(result), nil
}

func (r *feeRepoStub) FindByID(ctx context.Context, id string) (*models.FeePayment, error) {
	if p, ok := r.payments[id]; ok {
		copy := *p
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (r *feeRepoStub) FindByGatewayRef(ctx context.Context, ref string) (*models.FeePayment, error) {
	if id, ok := r.byRef[ref]; ok {
		return r.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (r *feeRepoStub) Create(ctx context.Context, payment *models.FeePayment) error {
	payment.ID = "pay-1"
	if payment.Status == "" {
		payment.Status = models.FeePaymentStatusPending
	}
	r.payments[payment.ID] = payment
	return nil
}

func (r *feeRepoStub) AttachGateway(ctx context.Context, id, gatewayRef, paymentURL string) error {
	p, ok := r.payments[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.GatewayRef = &gatewayRef
	p.PaymentURL = &paymentURL
	r.byRef[gatewayRef] = id
	return nil
}

func (r *feeRepoStub) UpdateStatus(ctx context.Context, id string, status models.FeePaymentStatus, paidAt *time.Time) (bool, error) {
	p, ok := r.payments[id]
	if !ok {
		return false, sql.ErrNoRows
	}
	if p.Status != models.FeePaymentStatusPending {
		return false, nil
	}
	p.Status = status
	p.PaidAt = paidAt
	return true, nil
}

type feeStudentStub struct{}

func (feeStudentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if id == "student-1" {
		return &models.Student{ID: id, Active: true}, nil
	}
	return nil, sql.ErrNoRows
}

type gatewayStub struct {
	err   error
	calls int
}

func (g *gatewayStub) CreateCharge(ctx context.Context, payment *models.FeePayment) (string, string, error) {
	g.calls++
	if g.err != nil {
		return "", "", g.err
	}
	return "gw-1", "https://pay.example/gw-1", nil
}

func TestFeeChargeDisabledWithoutGateway(t *testing.T) {
	svc := NewFeeService(newFeeRepoStub(), feeStudentStub{}, nil, nil)

	_, err := svc.Charge(context.Background(), CreateFeePaymentRequest{
		StudentID: "student-1", AcademicYearID: "year-1", Description: "SPP", AmountCents: 50000,
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestFeeChargeRegistersWithGateway(t *testing.T) {
	repo := newFeeRepoStub()
	gateway := &gatewayStub{}
	svc := NewFeeService(repo, feeStudentStub{}, gateway, nil)

	payment, err := svc.Charge(context.Background(), CreateFeePaymentRequest{
		StudentID: "student-1", AcademicYearID: "year-1", Description: "SPP", AmountCents: 50000,
	})
	require.NoError(t, err)
	require.Equal(t, models.FeePaymentStatusPending, payment.Status)
	require.NotNil(t, payment.GatewayRef)
	require.Equal(t, "gw-1", *payment.GatewayRef)
	require.Equal(t, 1, gateway.calls)
}

func TestFeeChargeMarksFailedOnGatewayError(t *testing.T) {
	repo := newFeeRepoStub()
	gateway := &gatewayStub{err: errors.New("gateway down")}
	svc := NewFeeService(repo, feeStudentStub{}, gateway, nil)

	_, err := svc.Charge(context.Background(), CreateFeePaymentRequest{
		StudentID: "student-1", AcademicYearID: "year-1", Description: "SPP", AmountCents: 50000,
	})
	require.Error(t, err)
	require.Equal(t, models.FeePaymentStatusFailed, repo.payments["pay-1"].Status)
}

func TestFeeWebhookTransitionsOnce(t *testing.T) {
	repo := newFeeRepoStub()
	gateway := &gatewayStub{}
	svc := NewFeeService(repo, feeStudentStub{}, gateway, nil)

	_, err := svc.Charge(context.Background(), CreateFeePaymentRequest{
		StudentID: "student-1", AcademicYearID: "year-1", Description: "SPP", AmountCents: 50000,
	})
	require.NoError(t, err)

	paidAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, svc.HandleWebhook(context.Background(), WebhookEvent{Ref: "gw-1", Status: "paid", PaidAt: &paidAt}))
	require.Equal(t, models.FeePaymentStatusPaid, repo.payments["pay-1"].Status)
	require.Equal(t, paidAt, repo.payments["pay-1"].PaidAt.UTC())

	// A replayed callback is acknowledged but changes nothing.
	require.NoError(t, svc.HandleWebhook(context.Background(), WebhookEvent{Ref: "gw-1", Status: "expired"}))
	require.Equal(t, models.FeePaymentStatusPaid, repo.payments["pay-1"].Status)
}

func TestFeeWebhookRejectsUnknownRefAndStatus(t *testing.T) {
	svc := NewFeeService(newFeeRepoStub(), feeStudentStub{}, &gatewayStub{}, nil)

	err := svc.HandleWebhook(context.Background(), WebhookEvent{Ref: "nope", Status: "paid"})
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	repo := newFeeRepoStub()
	svc = NewFeeService(repo, feeStudentStub{}, &gatewayStub{}, nil)
	_, err = svc.Charge(context.Background(), CreateFeePaymentRequest{
		StudentID: "student-1", AcademicYearID: "year-1", Description: "SPP", AmountCents: 50000,
	})
	require.NoError(t, err)

	err = svc.HandleWebhook(context.Background(), WebhookEvent{Ref: "gw-1", Status: "refunded"})
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
