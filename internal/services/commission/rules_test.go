package commission

import (
	"testing"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRule(level int, percentage string, minVolume string, minRank *models.Tier) models.CommissionRule {
	rule := models.CommissionRule{
		Level:      level,
		Type:       models.CommissionTypeDirect,
		Percentage: decimal.RequireFromString(percentage),
		MinVolume:  decimal.RequireFromString(minVolume),
		MinRank:    minRank,
		IsActive:   true,
		Version:    1,
	}
	rule.ID = uuid.New()
	return rule
}

func tierPtr(t models.Tier) *models.Tier { return &t }

func TestSelectRuleNoMatchPaysNothing(t *testing.T) {
	rules := []models.CommissionRule{newRule(1, "15", "0", nil)}

	rule, err := selectRule(rules, 2, models.TierGold, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Nil(t, rule, "a level without rules pays nothing, not an error")
}

func TestSelectRuleSkipsInactiveAndWrongLevel(t *testing.T) {
	inactive := newRule(1, "20", "0", nil)
	inactive.IsActive = false
	rules := []models.CommissionRule{inactive, newRule(2, "7", "0", nil)}

	rule, err := selectRule(rules, 1, models.TierGold, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestSelectRuleRankGate(t *testing.T) {
	rules := []models.CommissionRule{
		newRule(1, "10", "0", nil),
		newRule(1, "15", "0", tierPtr(models.TierGold)),
	}

	// A Gold partner gets the more specific gated rule.
	rule, err := selectRule(rules, 1, models.TierGold, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, rule.Percentage.Equal(decimal.RequireFromString("15")))

	// An Associate falls back to the rank-agnostic rule.
	rule, err = selectRule(rules, 1, models.TierAssociate, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, rule.Percentage.Equal(decimal.RequireFromString("10")))
}

func TestSelectRuleMinVolume(t *testing.T) {
	rules := []models.CommissionRule{newRule(1, "15", "5000", nil)}

	rule, err := selectRule(rules, 1, models.TierGold, decimal.NewFromInt(4999))
	require.NoError(t, err)
	assert.Nil(t, rule)

	rule, err = selectRule(rules, 1, models.TierGold, decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.NotNil(t, rule)
}

func TestSelectRulePercentageTieBreak(t *testing.T) {
	rules := []models.CommissionRule{
		newRule(1, "10", "0", tierPtr(models.TierSilver)),
		newRule(1, "12", "0", tierPtr(models.TierSilver)),
	}

	rule, err := selectRule(rules, 1, models.TierGold, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, rule.Percentage.Equal(decimal.RequireFromString("12")))
}

func TestSelectRuleAmbiguityFailsLoudly(t *testing.T) {
	rules := []models.CommissionRule{
		newRule(1, "10", "0", tierPtr(models.TierSilver)),
		newRule(1, "10", "0", tierPtr(models.TierSilver)),
	}

	rule, err := selectRule(rules, 1, models.TierGold, decimal.NewFromInt(1000))
	assert.Nil(t, rule)

	var ambiguity *RuleAmbiguityError
	require.ErrorAs(t, err, &ambiguity)
	assert.Equal(t, 1, ambiguity.Level)
	assert.Len(t, ambiguity.RuleIDs, 2)
}

func TestSelectRuleDeterministic(t *testing.T) {
	rules := []models.CommissionRule{
		newRule(1, "10", "0", nil),
		newRule(1, "15", "0", tierPtr(models.TierBronze)),
		newRule(1, "20", "0", tierPtr(models.TierDiamond)),
	}

	first, err := selectRule(rules, 1, models.TierGold, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.NotNil(t, first)

	for i := 0; i < 10; i++ {
		again, err := selectRule(rules, 1, models.TierGold, decimal.NewFromInt(1000))
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, first.ID, again.ID)
	}
}
