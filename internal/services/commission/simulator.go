package commission

import (
	"errors"
	"fmt"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Scenario describes the what-if overrides for a simulation. Nil fields keep
// the partner's real state.
type Scenario struct {
	NewTier          *models.Tier     `json:"new_tier,omitempty"`
	VolumeMultiplier *decimal.Decimal `json:"volume_multiplier,omitempty"`
}

// LevelProjection is one level of a simulated earning breakdown: what the
// partner would earn as the level-N beneficiary of a downline transaction.
type LevelProjection struct {
	Level      int             `json:"level"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// SimulationResult compares the partner's commission outcome under current
// state against the scenario.
type SimulationResult struct {
	PartnerID           uuid.UUID         `json:"partner_id"`
	CurrentCommission   decimal.Decimal   `json:"current_commission"`
	ProjectedCommission decimal.Decimal   `json:"projected_commission"`
	Difference          decimal.Decimal   `json:"difference"`
	CurrentBreakdown    []LevelProjection `json:"current_breakdown"`
	ProjectedBreakdown  []LevelProjection `json:"projected_breakdown"`
}

// Simulator replays the engine's pricing logic against hypothetical inputs
// without touching persisted state. It shares the rule-selection and
// rounding code with the live engine, so simulated and real outcomes cannot
// drift apart.
type Simulator struct {
	db        *gorm.DB
	maxLevels int
}

// NewSimulator creates a new commission simulator
func NewSimulator(db *gorm.DB, maxLevels int) *Simulator {
	if maxLevels <= 0 || maxLevels > defaultMaxLevels {
		maxLevels = defaultMaxLevels
	}
	return &Simulator{db: db, maxLevels: maxLevels}
}

// Simulate prices a hypothetical downline transaction of the given amount
// twice: once with the partner's real rank and the given amount, once with
// the scenario's overrides applied. Both passes run read-only through the
// shared pricing code.
func (s *Simulator) Simulate(partnerID uuid.UUID, amount decimal.Decimal, scenario Scenario) (*SimulationResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("simulation amount must be positive, got %s", amount)
	}
	if scenario.NewTier != nil && !scenario.NewTier.Valid() {
		return nil, fmt.Errorf("unknown tier %q", *scenario.NewTier)
	}
	if scenario.VolumeMultiplier != nil && !scenario.VolumeMultiplier.IsPositive() {
		return nil, fmt.Errorf("volume multiplier must be positive, got %s", scenario.VolumeMultiplier)
	}

	var partner models.Partner
	if err := s.db.First(&partner, "id = ?", partnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("partner %s not found", partnerID)
		}
		return nil, fmt.Errorf("error loading partner: %w", err)
	}

	rules, err := loadActiveRules(s.db)
	if err != nil {
		return nil, err
	}

	currentBreakdown, err := projectLevels(rules, partner.Tier, amount, s.maxLevels)
	if err != nil {
		return nil, err
	}

	projectedTier := partner.Tier
	if scenario.NewTier != nil {
		projectedTier = *scenario.NewTier
	}
	projectedAmount := amount
	if scenario.VolumeMultiplier != nil {
		projectedAmount = amount.Mul(*scenario.VolumeMultiplier)
	}
	projectedBreakdown, err := projectLevels(rules, projectedTier, projectedAmount, s.maxLevels)
	if err != nil {
		return nil, err
	}

	result := &SimulationResult{
		PartnerID:           partnerID,
		CurrentBreakdown:    currentBreakdown,
		ProjectedBreakdown:  projectedBreakdown,
		CurrentCommission:   decimal.Zero,
		ProjectedCommission: decimal.Zero,
	}
	for _, p := range currentBreakdown {
		result.CurrentCommission = result.CurrentCommission.Add(p.Amount)
	}
	for _, p := range projectedBreakdown {
		result.ProjectedCommission = result.ProjectedCommission.Add(p.Amount)
	}
	result.Difference = result.ProjectedCommission.Sub(result.CurrentCommission)
	return result, nil
}

// projectLevels prices every level the partner could occupy as beneficiary,
// using the same rule selection and per-record rounding the engine uses.
func projectLevels(rules []models.CommissionRule, rank models.Tier, amount decimal.Decimal, maxLevels int) ([]LevelProjection, error) {
	projections := make([]LevelProjection, 0, maxLevels)
	for level := 1; level <= maxLevels; level++ {
		rule, err := selectRule(rules, level, rank, amount)
		if err != nil {
			return nil, err
		}

		projection := LevelProjection{Level: level, Percentage: decimal.Zero, Amount: decimal.Zero}
		if rule != nil && rule.Percentage.IsPositive() {
			projection.Percentage = rule.Percentage
			projection.Amount = commissionAmount(amount, rule.Percentage)
		}
		projections = append(projections, projection)
	}
	return projections, nil
}
