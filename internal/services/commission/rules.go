package commission

import (
	"errors"
	"fmt"
	"sort"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RuleService manages the versioned commission rule table. Rules are never
// edited in place: a change appends a new version and deactivates the old
// one, so commissions already computed under a previous value stay valid.
type RuleService struct {
	db *gorm.DB
}

// NewRuleService creates a new commission rule service
func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{db: db}
}

// CreateRuleInput carries the fields for a new rule version.
type CreateRuleInput struct {
	Level      int
	Type       models.CommissionType
	Percentage decimal.Decimal
	MinVolume  decimal.Decimal
	MinRank    *models.Tier
}

// CreateRule appends a rule. If an active rule with the same level, type and
// rank gate exists it is deactivated and the new rule carries its version
// plus one.
func (s *RuleService) CreateRule(input CreateRuleInput) (*models.CommissionRule, error) {
	if input.Level < 1 {
		return nil, fmt.Errorf("rule level must be at least 1, got %d", input.Level)
	}
	if input.Percentage.IsNegative() || input.Percentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("rule percentage must be between 0 and 100, got %s", input.Percentage)
	}
	if input.MinRank != nil && !input.MinRank.Valid() {
		return nil, fmt.Errorf("unknown tier %q", *input.MinRank)
	}

	rule := models.CommissionRule{
		Level:      input.Level,
		Type:       input.Type,
		Percentage: input.Percentage,
		MinVolume:  input.MinVolume,
		MinRank:    input.MinRank,
		IsActive:   true,
		Version:    1,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.CommissionRule{}).
			Where("level = ? AND type = ? AND is_active = ?", input.Level, input.Type, true)
		if input.MinRank == nil {
			query = query.Where("min_rank IS NULL")
		} else {
			query = query.Where("min_rank = ?", *input.MinRank)
		}

		var predecessor models.CommissionRule
		err := query.First(&predecessor).Error
		switch {
		case err == nil:
			rule.Version = predecessor.Version + 1
			if err := tx.Model(&predecessor).Update("is_active", false).Error; err != nil {
				return fmt.Errorf("error deactivating rule version %d: %w", predecessor.Version, err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("error finding predecessor rule: %w", err)
		}

		if err := tx.Create(&rule).Error; err != nil {
			return fmt.Errorf("error creating rule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules returns all rules ordered by level then version, including
// deactivated versions when includeInactive is set.
func (s *RuleService) ListRules(includeInactive bool) ([]models.CommissionRule, error) {
	query := s.db.Order("level ASC, version ASC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var rules []models.CommissionRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("error listing rules: %w", err)
	}
	return rules, nil
}

// DeactivateRule retires a rule without deleting it. Historical commission
// records keep referencing it.
func (s *RuleService) DeactivateRule(id uuid.UUID) error {
	result := s.db.Model(&models.CommissionRule{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("error deactivating rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("rule %s not found", id)
	}
	return nil
}

// ActiveRuleFor resolves the single applicable active rule for a level given
// the beneficiary's rank and the qualifying volume. A nil result with a nil
// error means no commission is paid at that level, which is legitimate.
func (s *RuleService) ActiveRuleFor(level int, rank models.Tier, volume decimal.Decimal) (*models.CommissionRule, error) {
	var rules []models.CommissionRule
	if err := s.db.Where("level = ? AND is_active = ?", level, true).Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("error loading rules for level %d: %w", level, err)
	}
	return selectRule(rules, level, rank, volume)
}

// loadActiveRules snapshots every active rule in one query. The calculation
// walk reads the snapshot instead of re-querying per level, so a concurrent
// rule edit can never be applied mid-walk.
func loadActiveRules(tx *gorm.DB) ([]models.CommissionRule, error) {
	var rules []models.CommissionRule
	if err := tx.Where("is_active = ?", true).Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("error loading active rules: %w", err)
	}
	return rules, nil
}

// rankGate returns the specificity of a rule's rank requirement. A
// rank-agnostic rule sorts below every gated rule.
func rankGate(rule models.CommissionRule) int {
	if rule.MinRank == nil {
		return -1
	}
	return rule.MinRank.Rank()
}

// selectRule applies the deterministic selection policy over a rule
// snapshot:
//
//  1. keep active rules for the level whose rank gate is satisfied by the
//     beneficiary's rank and whose minimum volume is covered;
//  2. among those, the highest rank gate wins (most specific rule);
//  3. ties break by highest percentage.
//
// No eligible rule means the level pays nothing. An exact tie after both
// tie-breaks means the table itself is inconsistent and fails loudly.
func selectRule(rules []models.CommissionRule, level int, rank models.Tier, volume decimal.Decimal) (*models.CommissionRule, error) {
	var eligible []models.CommissionRule
	for _, rule := range rules {
		if rule.Level != level || !rule.IsActive {
			continue
		}
		if rule.MinRank != nil && !rank.AtLeast(*rule.MinRank) {
			continue
		}
		if rule.MinVolume.GreaterThan(volume) {
			continue
		}
		eligible = append(eligible, rule)
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		gi, gj := rankGate(eligible[i]), rankGate(eligible[j])
		if gi != gj {
			return gi > gj
		}
		return eligible[i].Percentage.GreaterThan(eligible[j].Percentage)
	})

	winner := eligible[0]
	if len(eligible) > 1 {
		runnerUp := eligible[1]
		if rankGate(winner) == rankGate(runnerUp) && winner.Percentage.Equal(runnerUp.Percentage) {
			return nil, &RuleAmbiguityError{Level: level, RuleIDs: []uuid.UUID{winner.ID, runnerUp.ID}}
		}
	}
	return &winner, nil
}
