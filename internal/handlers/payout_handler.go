package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/estatedesk/backoffice/internal/services/commission"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PayoutHandler exposes qualification evaluation and the payout approval
// workflow.
type PayoutHandler struct {
	payoutService *commission.PayoutService
}

// NewPayoutHandler creates a new payout handler
func NewPayoutHandler(payoutService *commission.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutService: payoutService}
}

// periodRequest is the shared period fragment of payout request bodies
type periodRequest struct {
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

func (r periodRequest) period() (commission.Period, bool) {
	if !r.PeriodStart.Before(r.PeriodEnd) {
		return commission.Period{}, false
	}
	return commission.Period{Start: r.PeriodStart, End: r.PeriodEnd}, true
}

// EvaluateQualificationRequest is the request body for a qualification pass
type EvaluateQualificationRequest struct {
	PartnerID string `json:"partner_id" binding:"required,uuid"`
	RuleID    string `json:"rule_id" binding:"required,uuid"`
	periodRequest
}

// EvaluateQualification evaluates one partner against one rule for a period
func (h *PayoutHandler) EvaluateQualification(c *gin.Context) {
	var req EvaluateQualificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	partnerID, err := uuid.Parse(req.PartnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}
	ruleID, err := uuid.Parse(req.RuleID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}
	period, ok := req.period()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period start must precede period end"})
		return
	}

	qualification, err := h.payoutService.EvaluateQualification(partnerID, ruleID, period)
	if err != nil {
		var closed *commission.PeriodClosedError
		if errors.As(err, &closed) {
			c.JSON(http.StatusConflict, gin.H{"error": closed.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to evaluate qualification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"qualification": qualification})
}

// CreatePayoutRequest is the request body for batching a payout
type CreatePayoutRequest struct {
	PartnerID string `json:"partner_id" binding:"required,uuid"`
	Notes     string `json:"notes"`
	periodRequest
}

// Create batches a partner's unpaid commissions into a pending payout
func (h *PayoutHandler) Create(c *gin.Context) {
	var req CreatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	partnerID, err := uuid.Parse(req.PartnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}
	period, ok := req.period()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period start must precede period end"})
		return
	}

	payout, err := h.payoutService.CreatePayout(partnerID, period, req.Notes)
	if err != nil {
		var nothing *commission.NoUnpaidCommissionsError
		if errors.As(err, &nothing) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": nothing.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payout"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"payout": payout})
}

// ApproveRequest is the request body for a payout approval
type ApproveRequest struct {
	ApproverID string `json:"approver_id" binding:"required,uuid"`
}

// Approve moves a pending payout to approved
func (h *PayoutHandler) Approve(c *gin.Context) {
	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout id"})
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	approverID, err := uuid.Parse(req.ApproverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid approver id"})
		return
	}

	payout, err := h.payoutService.Approve(payoutID, approverID)
	if err != nil {
		h.respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

// MarkPaid settles an approved payout and its constituent records
func (h *PayoutHandler) MarkPaid(c *gin.Context) {
	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout id"})
		return
	}

	payout, err := h.payoutService.MarkPaid(payoutID)
	if err != nil {
		h.respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

// Cancel terminally cancels a pending or approved payout
func (h *PayoutHandler) Cancel(c *gin.Context) {
	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout id"})
		return
	}

	payout, err := h.payoutService.Cancel(payoutID)
	if err != nil {
		h.respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

// Get returns one payout
func (h *PayoutHandler) Get(c *gin.Context) {
	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payout id"})
		return
	}

	payout, err := h.payoutService.GetPayout(payoutID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payout not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

// ListForPartner returns a partner's payouts
func (h *PayoutHandler) ListForPartner(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}

	payouts, err := h.payoutService.ListPayouts(partnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payouts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}

// respondTransitionError maps payout workflow errors to HTTP statuses
func (h *PayoutHandler) respondTransitionError(c *gin.Context, err error) {
	var invalidState *commission.InvalidPayoutStateError
	if errors.As(err, &invalidState) {
		c.JSON(http.StatusConflict, gin.H{
			"error":            invalidState.Error(),
			"current_status":   invalidState.Current,
			"attempted_status": invalidState.Attempted,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "payout operation failed"})
}
