package network

import (
	"errors"
	"fmt"
	"log"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/estatedesk/backoffice/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// referral code collisions are vanishingly rare; this bound only stops a
// pathological charset/table combination from spinning forever.
const maxCodeAttempts = 10

// StatsRefresher is notified after a tree mutation so the affected sponsor
// chain's cached aggregates can be recomputed. Refreshing may happen
// asynchronously; aggregates are a cache and tolerate lag.
type StatsRefresher interface {
	RefreshChain(partnerID uuid.UUID) error
}

// PartnerService owns the partner directory: enrollment, lookups and the
// downline traversal.
type PartnerService struct {
	db        *gorm.DB
	refresher StatsRefresher
}

// NewPartnerService creates a new partner directory service
func NewPartnerService(db *gorm.DB) *PartnerService {
	return &PartnerService{db: db}
}

// SetStatsRefresher wires the refresher notified after tree mutations.
func (s *PartnerService) SetStatsRefresher(r StatsRefresher) {
	s.refresher = r
}

// EnrollInput carries the fields needed to enroll a partner.
type EnrollInput struct {
	UserID      uuid.UUID
	DisplayName string
	SponsorID   *uuid.UUID
}

// Enroll creates a partner row with a collision-free referral code and, if a
// sponsor is given, links it into the tree. The sponsor must exist, be
// active, and must not already have the new partner in its upline.
func (s *PartnerService) Enroll(input EnrollInput) (*models.Partner, error) {
	partner := models.Partner{
		UserID:            input.UserID,
		DisplayName:       input.DisplayName,
		Tier:              models.TierAssociate,
		IsActive:          true,
		TotalEarnings:     decimal.Zero,
		MonthlyCommission: decimal.Zero,
	}
	partner.ID = uuid.New()

	if input.SponsorID != nil {
		if err := s.validateSponsor(partner.ID, *input.SponsorID); err != nil {
			return nil, err
		}
		partner.SponsorID = input.SponsorID
	}

	code, err := s.uniqueReferralCode()
	if err != nil {
		return nil, err
	}
	partner.ReferralCode = code

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&partner).Error; err != nil {
			return fmt.Errorf("error creating partner: %w", err)
		}

		if partner.SponsorID != nil {
			activity := models.ReferralActivity{
				ReferrerID:  *partner.SponsorID,
				ReferredID:  partner.ID,
				Description: fmt.Sprintf("%s joined the network", partner.DisplayName),
				Amount:      decimal.Zero,
			}
			if err := tx.Create(&activity).Error; err != nil {
				return fmt.Errorf("error recording referral activity: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if partner.SponsorID != nil && s.refresher != nil {
		if err := s.refresher.RefreshChain(*partner.SponsorID); err != nil {
			// The enrollment itself succeeded and aggregates are
			// recomputable; the nightly sweep will catch up.
			log.Printf("stats refresh for sponsor %s failed: %v", *partner.SponsorID, err)
		}
	}

	return &partner, nil
}

// validateSponsor checks existence, activity and acyclicity for a sponsor
// assignment.
func (s *PartnerService) validateSponsor(childID, sponsorID uuid.UUID) error {
	var sponsor models.Partner
	if err := s.db.First(&sponsor, "id = ?", sponsorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &InvalidSponsorError{SponsorID: sponsorID, Reason: "sponsor does not exist"}
		}
		return fmt.Errorf("error finding sponsor: %w", err)
	}
	if !sponsor.IsActive {
		return &InvalidSponsorError{SponsorID: sponsorID, Reason: "sponsor is inactive"}
	}

	partners, err := s.allPartners()
	if err != nil {
		return err
	}
	if wouldCreateCycle(indexByID(partners), childID, sponsorID) {
		return &InvalidSponsorError{SponsorID: sponsorID, Reason: "assignment would create a cycle"}
	}
	return nil
}

// uniqueReferralCode draws referral codes until one does not collide with an
// existing partner.
func (s *PartnerService) uniqueReferralCode() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := utils.GenerateReferralCode()

		var count int64
		if err := s.db.Model(&models.Partner{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", fmt.Errorf("error checking referral code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique referral code after %d attempts", maxCodeAttempts)
}

// Get returns a partner by id.
func (s *PartnerService) Get(id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := s.db.First(&partner, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &PartnerNotFoundError{PartnerID: id}
		}
		return nil, fmt.Errorf("error finding partner: %w", err)
	}
	return &partner, nil
}

// GetByReferralCode returns the partner owning a referral code. Used by the
// signup flow to resolve a sponsor from the code a new user typed in.
func (s *PartnerService) GetByReferralCode(code string) (*models.Partner, error) {
	var partner models.Partner
	if err := s.db.First(&partner, "referral_code = ?", code).Error; err != nil {
		return nil, fmt.Errorf("error finding partner by referral code: %w", err)
	}
	return &partner, nil
}

// List returns a page of partners ordered by enrollment date.
func (s *PartnerService) List(page, pageSize int) ([]models.Partner, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.db.Model(&models.Partner{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting partners: %w", err)
	}

	var partners []models.Partner
	err := s.db.Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&partners).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error listing partners: %w", err)
	}
	return partners, total, nil
}

// SetTier updates a partner's tier. Historical commission records are not
// touched; the new tier only affects rule resolution from now on.
func (s *PartnerService) SetTier(id uuid.UUID, tier models.Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("unknown tier %q", tier)
	}
	result := s.db.Model(&models.Partner{}).Where("id = ?", id).Update("tier", tier)
	if result.Error != nil {
		return fmt.Errorf("error updating tier: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &PartnerNotFoundError{PartnerID: id}
	}
	return nil
}

// SetActive flips a partner's active flag. Deactivation does not remove the
// partner from the tree and never rewrites commission history.
func (s *PartnerService) SetActive(id uuid.UUID, active bool) error {
	result := s.db.Model(&models.Partner{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("error updating active flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &PartnerNotFoundError{PartnerID: id}
	}
	return nil
}

// DownlineOf returns every descendant of a partner within maxDepth
// sponsor-hops, breadth-first. An absolute depth ceiling applies on top of
// maxDepth so a corrupted tree cannot loop the walk.
func (s *PartnerService) DownlineOf(id uuid.UUID, maxDepth int) ([]models.Partner, error) {
	partners, err := s.allPartners()
	if err != nil {
		return nil, err
	}

	ids := collectDownline(buildAdjacency(partners), id, maxDepth)
	byID := indexByID(partners)

	downline := make([]models.Partner, 0, len(ids))
	for _, childID := range ids {
		if p, ok := byID[childID]; ok {
			downline = append(downline, p)
		}
	}
	return downline, nil
}

// ActivityFeed returns the most recent referral activities, newest first.
func (s *PartnerService) ActivityFeed(limit int) ([]models.ReferralActivity, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var activities []models.ReferralActivity
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("error loading activity feed: %w", err)
	}
	return activities, nil
}

// allPartners loads the full directory in one query. The partner table is
// small relative to the ledger tables; traversals work over one snapshot.
func (s *PartnerService) allPartners() ([]models.Partner, error) {
	var partners []models.Partner
	if err := s.db.Find(&partners).Error; err != nil {
		return nil, fmt.Errorf("error loading partners: %w", err)
	}
	return partners, nil
}
