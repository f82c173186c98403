package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/estatedesk/backoffice/internal/services/commission"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionHandler exposes the rule table, the calculation trigger, the
// ledger queries and the simulator.
type CommissionHandler struct {
	engine        *commission.Engine
	ruleService   *commission.RuleService
	ledgerService *commission.LedgerService
	simulator     *commission.Simulator
}

// NewCommissionHandler creates a new commission handler
func NewCommissionHandler(engine *commission.Engine, ruleService *commission.RuleService, ledgerService *commission.LedgerService, simulator *commission.Simulator) *CommissionHandler {
	return &CommissionHandler{
		engine:        engine,
		ruleService:   ruleService,
		ledgerService: ledgerService,
		simulator:     simulator,
	}
}

// TransactionCompletedRequest is the inbound trigger payload from the
// transaction subsystem.
type TransactionCompletedRequest struct {
	SourcePartnerID string          `json:"source_partner_id" binding:"required,uuid"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	TransactionRef  string          `json:"transaction_ref" binding:"required"`
}

// OnTransactionCompleted runs the commission calculation for a finalized
// transaction
func (h *CommissionHandler) OnTransactionCompleted(c *gin.Context) {
	var req TransactionCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sourceID, err := uuid.Parse(req.SourcePartnerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source partner id"})
		return
	}

	records, err := h.engine.Calculate(c.Request.Context(), sourceID, req.Amount, req.TransactionRef)
	if err != nil {
		var duplicate *commission.DuplicateTransactionError
		if errors.As(err, &duplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": duplicate.Error()})
			return
		}
		var ambiguous *commission.RuleAmbiguityError
		if errors.As(err, &ambiguous) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": ambiguous.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to calculate commissions"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// CreateRuleRequest is the request body for appending a commission rule
type CreateRuleRequest struct {
	Level      int             `json:"level" binding:"required,min=1"`
	Type       string          `json:"type"`
	Percentage decimal.Decimal `json:"percentage" binding:"required"`
	MinVolume  decimal.Decimal `json:"min_volume"`
	MinRank    *string         `json:"min_rank"`
}

// CreateRule appends a commission rule version
func (h *CommissionHandler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := commission.CreateRuleInput{
		Level:      req.Level,
		Type:       models.CommissionTypeDirect,
		Percentage: req.Percentage,
		MinVolume:  req.MinVolume,
	}
	if req.Type != "" {
		input.Type = models.CommissionType(req.Type)
	}
	if req.MinRank != nil {
		tier := models.Tier(*req.MinRank)
		input.MinRank = &tier
	}

	rule, err := h.ruleService.CreateRule(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// ListRules returns the rule table
func (h *CommissionHandler) ListRules(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	rules, err := h.ruleService.ListRules(includeInactive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rules"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// DeactivateRule retires a rule version
func (h *CommissionHandler) DeactivateRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}

	if err := h.ruleService.DeactivateRule(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rule deactivated"})
}

// ListRecords returns a partner's commission ledger entries
func (h *CommissionHandler) ListRecords(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, err := h.ledgerService.ListRecords(partnerID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list commission records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Summary returns a partner's ledger position
func (h *CommissionHandler) Summary(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}

	summary, err := h.ledgerService.Summary(partnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute earnings summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// CreateAdjustmentRequest is the request body for a ledger adjustment
type CreateAdjustmentRequest struct {
	RecordID  string          `json:"record_id" binding:"required,uuid"`
	Kind      string          `json:"kind" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reason    string          `json:"reason"`
	CreatedBy string          `json:"created_by" binding:"required,uuid"`
}

// CreateAdjustment appends a correction entry against a commission record
func (h *CommissionHandler) CreateAdjustment(c *gin.Context) {
	var req CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recordID, err := uuid.Parse(req.RecordID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}
	createdBy, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid created_by id"})
		return
	}

	adjustment, err := h.ledgerService.CreateAdjustment(recordID, models.AdjustmentKind(req.Kind), req.Amount, req.Reason, createdBy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"adjustment": adjustment})
}

// SimulateRequest is the request body for a what-if simulation
type SimulateRequest struct {
	Amount           decimal.Decimal  `json:"amount" binding:"required"`
	NewTier          *string          `json:"new_tier"`
	VolumeMultiplier *decimal.Decimal `json:"volume_multiplier"`
}

// Simulate runs a read-only commission projection for a partner
func (h *CommissionHandler) Simulate(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}

	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scenario := commission.Scenario{VolumeMultiplier: req.VolumeMultiplier}
	if req.NewTier != nil {
		tier := models.Tier(*req.NewTier)
		scenario.NewTier = &tier
	}

	result, err := h.simulator.Simulate(partnerID, req.Amount, scenario)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"simulation": result})
}
