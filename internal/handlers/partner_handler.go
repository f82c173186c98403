package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/estatedesk/backoffice/internal/services/network"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PartnerHandler exposes the partner directory to the admin surface.
type PartnerHandler struct {
	partnerService *network.PartnerService
	statsService   *network.StatsService
}

// NewPartnerHandler creates a new partner handler
func NewPartnerHandler(partnerService *network.PartnerService, statsService *network.StatsService) *PartnerHandler {
	return &PartnerHandler{
		partnerService: partnerService,
		statsService:   statsService,
	}
}

// EnrollRequest is the request body for enrolling a partner
type EnrollRequest struct {
	UserID      string  `json:"user_id" binding:"required,uuid"`
	DisplayName string  `json:"display_name" binding:"required"`
	SponsorID   *string `json:"sponsor_id" binding:"omitempty,uuid"`
	SponsorCode *string `json:"sponsor_code" binding:"omitempty,len=8"`
}

// Enroll handles partner enrollment
func (h *PartnerHandler) Enroll(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	input := network.EnrollInput{
		UserID:      userID,
		DisplayName: req.DisplayName,
	}

	switch {
	case req.SponsorID != nil:
		sponsorID, err := uuid.Parse(*req.SponsorID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sponsor id"})
			return
		}
		input.SponsorID = &sponsorID
	case req.SponsorCode != nil:
		sponsor, err := h.partnerService.GetByReferralCode(*req.SponsorCode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sponsor referral code"})
			return
		}
		input.SponsorID = &sponsor.ID
	}

	partner, err := h.partnerService.Enroll(input)
	if err != nil {
		var invalidSponsor *network.InvalidSponsorError
		if errors.As(err, &invalidSponsor) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": invalidSponsor.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enroll partner"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"partner": partner})
}

// Get returns one partner
func (h *PartnerHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}

	partner, err := h.partnerService.Get(id)
	if err != nil {
		var notFound *network.PartnerNotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load partner"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"partner": partner})
}

// List returns a page of partners
func (h *PartnerHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	partners, total, err := h.partnerService.List(page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list partners"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"partners": partners,
		"total":    total,
		"page":     page,
	})
}

// SetTierRequest is the request body for a tier change
type SetTierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

// SetTier updates a partner's tier
func (h *PartnerHandler) SetTier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}

	var req SetTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.partnerService.SetTier(id, models.Tier(req.Tier)); err != nil {
		var notFound *network.PartnerNotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tier updated"})
}

// SetActiveRequest is the request body for an activity flag change
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive flips a partner's active flag
func (h *PartnerHandler) SetActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.partnerService.SetActive(id, *req.Active); err != nil {
		var notFound *network.PartnerNotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update partner"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "partner updated"})
}

// Downline returns a partner's downline bounded by max_depth
func (h *PartnerHandler) Downline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}
	maxDepth, _ := strconv.Atoi(c.DefaultQuery("max_depth", "0"))

	downline, err := h.partnerService.DownlineOf(id, maxDepth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load downline"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"downline": downline,
		"count":    len(downline),
	})
}

// RefreshStats recomputes a partner's cached network aggregates on demand
func (h *PartnerHandler) RefreshStats(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid partner id"})
		return
	}

	if err := h.statsService.Refresh(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh network stats"})
		return
	}

	partner, err := h.partnerService.Get(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load partner"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"partner": partner})
}

// ActivityFeed returns recent referral activity
func (h *PartnerHandler) ActivityFeed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	activities, err := h.partnerService.ActivityFeed(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load activity feed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": activities})
}
