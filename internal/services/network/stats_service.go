package network

import (
	"fmt"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatsService recomputes the cached per-partner network aggregates from the
// current tree. Every method is idempotent: two refreshes without a tree
// mutation in between write identical values.
type StatsService struct {
	db *gorm.DB
}

// NewStatsService creates a new network statistics service
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// Refresh recomputes direct referrals, network size and network depth for
// one partner and stores them.
func (s *StatsService) Refresh(partnerID uuid.UUID) error {
	var partners []models.Partner
	if err := s.db.Find(&partners).Error; err != nil {
		return fmt.Errorf("error loading partners: %w", err)
	}

	adj := buildAdjacency(partners)
	return s.write(partnerID, computeStats(adj, partnerID))
}

// RefreshChain recomputes aggregates for a partner and every ancestor above
// it. The adjacency is built once and shared across the whole chain, so
// refreshing a deep chain does not re-walk shared subtrees per ancestor.
func (s *StatsService) RefreshChain(partnerID uuid.UUID) error {
	var partners []models.Partner
	if err := s.db.Find(&partners).Error; err != nil {
		return fmt.Errorf("error loading partners: %w", err)
	}

	adj := buildAdjacency(partners)
	byID := indexByID(partners)

	targets := append([]uuid.UUID{partnerID}, ancestorChain(byID, partnerID)...)
	for _, id := range targets {
		if err := s.write(id, computeStats(adj, id)); err != nil {
			return err
		}
	}
	return nil
}

// RefreshAll recomputes aggregates for every partner in the directory. Used
// by the nightly sweep job.
func (s *StatsService) RefreshAll() error {
	var partners []models.Partner
	if err := s.db.Find(&partners).Error; err != nil {
		return fmt.Errorf("error loading partners: %w", err)
	}

	adj := buildAdjacency(partners)
	for _, p := range partners {
		if err := s.write(p.ID, computeStats(adj, p.ID)); err != nil {
			return err
		}
	}
	return nil
}

// write stores the three aggregate columns for one partner.
func (s *StatsService) write(partnerID uuid.UUID, stats subtreeStats) error {
	err := s.db.Model(&models.Partner{}).
		Where("id = ?", partnerID).
		Updates(map[string]interface{}{
			"direct_referrals": stats.directReferrals,
			"network_size":     stats.networkSize,
			"network_depth":    stats.networkDepth,
		}).Error
	if err != nil {
		return fmt.Errorf("error writing network stats for partner %s: %w", partnerID, err)
	}
	return nil
}
