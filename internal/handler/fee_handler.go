package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/sekolahku-api/internal/models"
	"github.com/sekolahku/sekolahku-api/internal/service"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
	"github.com/sekolahku/sekolahku-api/pkg/response"
)

const webhookSignatureHeader = "X-Gateway-Signature"

// FeeHandler exposes fee payment endpoints plus the gateway callback.
type FeeHandler struct {
	fees           *service.FeeService
	callbackSecret string
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(fees *service.FeeService, callbackSecret string) *FeeHandler {
	return &FeeHandler{fees: fees, callbackSecret: callbackSecret}
}

// List godoc
// @Summary List fee payments
// @Tags Fees
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param academicYearId query string false "Filter by academic year"
// @Param status query string false "Filter by status (PENDING, PAID, FAILED, EXPIRED)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /fees [get]
func (h *FeeHandler) List(c *gin.Context) {
	var filter models.FeePaymentFilter
	filter.StudentID = c.Query("studentId")
	filter.AcademicYearID = c.Query("academicYearId")
	filter.Status = models.FeePaymentStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	payments, pagination, err := h.fees.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Get godoc
// @Summary Get fee payment detail
// @Tags Fees
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /fees/{id} [get]
func (h *FeeHandler) Get(c *gin.Context) {
	payment, err := h.fees.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Charge godoc
// @Summary Create a fee charge through the payment gateway
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.CreateFeePaymentRequest true "Charge payload"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /fees/charge [post]
func (h *FeeHandler) Charge(c *gin.Context) {
	var req service.CreateFeePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	payment, err := h.fees.Charge(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Webhook godoc
// @Summary Payment gateway callback
// @Description Verifies the HMAC signature over the raw body before touching
// @Description any payment. Replayed callbacks are acknowledged and ignored.
// @Tags Fees
// @Accept json
// @Produce json
// @Param X-Gateway-Signature header string true "Hex HMAC-SHA256 of the body"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /fees/webhook [post]
func (h *FeeHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable body"))
		return
	}
	if !service.VerifyWebhookSignature(h.callbackSecret, body, c.GetHeader(webhookSignatureHeader)) {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid webhook signature"))
		return
	}

	var event service.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.fees.HandleWebhook(c.Request.Context(), event); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"received": true}, nil)
}
