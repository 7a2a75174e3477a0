package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sekolahku/sekolahku-api/internal/dto"
	"github.com/sekolahku/sekolahku-api/internal/service"
	appErrors "github.com/sekolahku/sekolahku-api/pkg/errors"
	"github.com/sekolahku/sekolahku-api/pkg/response"
)

// PromotionHandler exposes the promotion and re-admission endpoints. These
// are the only writers to the enrollment ledger.
type PromotionHandler struct {
	promotions *service.PromotionService
}

// NewPromotionHandler constructs PromotionHandler.
func NewPromotionHandler(promotions *service.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions}
}

// Promote godoc
// @Summary Promote one student into the next academic year
// @Description The source year must be the current one, the target year must
// @Description follow it and the target class and section are explicit. The
// @Description student's roll number carries over.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param payload body dto.PromoteStudentRequest true "Promotion payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /promotions/promote [post]
func (h *PromotionHandler) Promote(c *gin.Context) {
	var req dto.PromoteStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.promotions.PromoteOne(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// PromoteBulk godoc
// @Summary Promote a class in one transaction
// @Description Students already enrolled in the target year are skipped,
// @Description counted but not modified. The target class and section may be
// @Description given explicitly; otherwise the class ladder and name-based
// @Description section mapping decide, and an unmappable section aborts the
// @Description whole batch.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param payload body dto.BulkPromotionRequest true "Bulk promotion payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /promotions/bulk-promote [post]
func (h *PromotionHandler) PromoteBulk(c *gin.Context) {
	var req dto.BulkPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.promotions.PromoteBulk(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ReAdmit godoc
// @Summary Re-admit a student into an academic year
// @Description Places the student into an explicit class and section and
// @Description generates a fresh sequential roll number.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param payload body dto.ReAdmissionRequest true "Re-admission payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /promotions/re-admit [post]
func (h *PromotionHandler) ReAdmit(c *gin.Context) {
	var req dto.ReAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.promotions.ReAdmitOne(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// ReAdmitBulk godoc
// @Summary Re-admit many students, one transaction each
// @Description Failures are collected into the report instead of aborting
// @Description the batch.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param payload body dto.BulkReAdmissionRequest true "Bulk re-admission payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /promotions/bulk-re-admit [post]
func (h *PromotionHandler) ReAdmitBulk(c *gin.Context) {
	var req dto.BulkReAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.promotions.ReAdmitBulk(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
