package commission

import (
	"testing"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPartner(tier models.Tier, active bool, sponsorID *uuid.UUID) models.Partner {
	p := models.Partner{Tier: tier, IsActive: active, SponsorID: sponsorID}
	p.ID = uuid.New()
	return p
}

// threeLevelChain builds A (diamond) <- B (gold) <- C (associate) and
// returns the partners plus the byID index.
func threeLevelChain() (a, b, c models.Partner, byID map[uuid.UUID]models.Partner) {
	a = newPartner(models.TierDiamond, true, nil)
	b = newPartner(models.TierGold, true, &a.ID)
	c = newPartner(models.TierAssociate, true, &b.ID)
	byID = map[uuid.UUID]models.Partner{a.ID: a, b.ID: b, c.ID: c}
	return
}

func standardRules() []models.CommissionRule {
	return []models.CommissionRule{
		newRule(1, "15", "0", nil),
		newRule(2, "7", "0", nil),
		newRule(3, "3", "0", nil),
	}
}

func TestPriceUplineThreeLevelChain(t *testing.T) {
	a, b, c, byID := threeLevelChain()

	upline := uplineOf(byID, c.ID, defaultMaxLevels)
	require.Len(t, upline, 2)
	assert.Equal(t, b.ID, upline[0].ID)
	assert.Equal(t, a.ID, upline[1].ID)

	amount := decimal.NewFromInt(100000)
	results, err := priceUpline(upline, standardRules(), amount, defaultMaxLevels)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Level 1: C's direct sponsor B earns 15%.
	assert.Equal(t, 1, results[0].Level)
	assert.Equal(t, b.ID, results[0].Beneficiary.ID)
	assert.True(t, results[0].Amount.Equal(decimal.NewFromInt(15000)), "got %s", results[0].Amount)

	// Level 2: B's sponsor A earns 7%.
	assert.Equal(t, 2, results[1].Level)
	assert.Equal(t, a.ID, results[1].Beneficiary.ID)
	assert.True(t, results[1].Amount.Equal(decimal.NewFromInt(7000)), "got %s", results[1].Amount)

	// No level 3: A has no sponsor. Total is exactly 22,000.
	assert.True(t, sumResults(results).Equal(decimal.NewFromInt(22000)))
}

func TestPriceUplineStopsAtInactiveSponsor(t *testing.T) {
	a := newPartner(models.TierDiamond, true, nil)
	b := newPartner(models.TierGold, false, &a.ID) // deactivated
	c := newPartner(models.TierAssociate, true, &b.ID)
	byID := map[uuid.UUID]models.Partner{a.ID: a, b.ID: b, c.ID: c}

	results, err := priceUpline(uplineOf(byID, c.ID, defaultMaxLevels), standardRules(), decimal.NewFromInt(100000), defaultMaxLevels)
	require.NoError(t, err)

	// The walk stops at the inactive sponsor; it does not skip to A.
	assert.Empty(t, results)
}

func TestPriceUplineLevelWithoutRuleContinues(t *testing.T) {
	a, _, c, byID := threeLevelChain()

	// Only level 2 pays.
	rules := []models.CommissionRule{newRule(2, "7", "0", nil)}

	results, err := priceUpline(uplineOf(byID, c.ID, defaultMaxLevels), rules, decimal.NewFromInt(1000), defaultMaxLevels)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Nil(t, results[0].Rule)
	assert.True(t, results[0].Amount.IsZero())
	require.NotNil(t, results[1].Rule)
	assert.Equal(t, a.ID, results[1].Beneficiary.ID)
	assert.True(t, results[1].Amount.Equal(decimal.NewFromInt(70)))
}

func TestPriceUplineHardLevelCeiling(t *testing.T) {
	// A chain of 10 partners, everyone on the same flat rule.
	var sponsor *uuid.UUID
	byID := make(map[uuid.UUID]models.Partner)
	var bottom models.Partner
	for i := 0; i < 10; i++ {
		p := newPartner(models.TierAssociate, true, sponsor)
		byID[p.ID] = p
		sponsor = &p.ID
		bottom = p
	}

	rules := make([]models.CommissionRule, 0, 10)
	for level := 1; level <= 10; level++ {
		rules = append(rules, newRule(level, "1", "0", nil))
	}

	results, err := priceUpline(uplineOf(byID, bottom.ID, 10), rules, decimal.NewFromInt(100), 10)
	require.NoError(t, err)
	assert.Len(t, results, defaultMaxLevels, "walk must stop at the hard ceiling")
}

func TestUplineOfTerminatesOnCorruptedCycle(t *testing.T) {
	a := newPartner(models.TierGold, true, nil)
	b := newPartner(models.TierGold, true, &a.ID)
	a.SponsorID = &b.ID // corruption: a and b sponsor each other
	byID := map[uuid.UUID]models.Partner{a.ID: a, b.ID: b}

	upline := uplineOf(byID, b.ID, defaultMaxLevels)
	assert.Len(t, upline, 1, "cycle must not extend the chain past the first revisit")
}

func TestCommissionAmountRoundsPerRecord(t *testing.T) {
	// 100.01 at 3% is 3.0003 and must round to 3.00 when the record is
	// created, not after summation.
	amount := commissionAmount(decimal.RequireFromString("100.01"), decimal.RequireFromString("3"))
	assert.True(t, amount.Equal(decimal.RequireFromString("3.00")), "got %s", amount)

	// Half-up at the minor unit.
	amount = commissionAmount(decimal.RequireFromString("100.50"), decimal.RequireFromString("2.5"))
	assert.True(t, amount.Equal(decimal.RequireFromString("2.51")), "got %s", amount)
}

func TestPriceUplineConservationWithRounding(t *testing.T) {
	_, _, c, byID := threeLevelChain()

	rules := []models.CommissionRule{
		newRule(1, "3.33", "0", nil),
		newRule(2, "1.11", "0", nil),
	}
	amount := decimal.RequireFromString("99.99")

	results, err := priceUpline(uplineOf(byID, c.ID, defaultMaxLevels), rules, amount, defaultMaxLevels)
	require.NoError(t, err)
	require.Len(t, results, 2)

	expected := commissionAmount(amount, rules[0].Percentage).
		Add(commissionAmount(amount, rules[1].Percentage))
	assert.True(t, sumResults(results).Equal(expected))
}
