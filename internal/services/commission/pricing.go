package commission

import (
	"github.com/estatedesk/backoffice/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// defaultMaxLevels caps the upward walk. The product pays commissions on at
// most seven levels.
const defaultMaxLevels = 7

// commissionAmount prices one level. Rounding happens here, per record, to
// the currency's minor unit; sums over records never re-round.
func commissionAmount(transactionAmount, percentage decimal.Decimal) decimal.Decimal {
	return transactionAmount.Mul(percentage).Div(decimal.NewFromInt(100)).Round(2)
}

// levelResult is the priced outcome of one level of a walk. Rule is nil when
// no active rule matched, in which case the level legitimately pays nothing.
type levelResult struct {
	Beneficiary models.Partner
	Level       int
	Rule        *models.CommissionRule
	Amount      decimal.Decimal
}

// priceUpline executes the pricing walk over an already-snapshotted upline
// and rule set. The walk stops at the first inactive sponsor, at the end of
// the chain, or at maxLevels, whichever comes first. A level without an
// applicable rule pays nothing but does not stop the walk.
//
// The simulator prices its projections with the same selectRule and
// commissionAmount helpers, so rule choice and rounding cannot drift
// between a live calculation and a what-if.
func priceUpline(upline []models.Partner, rules []models.CommissionRule, amount decimal.Decimal, maxLevels int) ([]levelResult, error) {
	if maxLevels <= 0 || maxLevels > defaultMaxLevels {
		maxLevels = defaultMaxLevels
	}

	var results []levelResult
	for i, sponsor := range upline {
		level := i + 1
		if level > maxLevels {
			break
		}
		if !sponsor.IsActive {
			break
		}

		rule, err := selectRule(rules, level, sponsor.Tier, amount)
		if err != nil {
			return nil, err
		}

		result := levelResult{Beneficiary: sponsor, Level: level, Amount: decimal.Zero}
		if rule != nil && rule.Percentage.IsPositive() {
			result.Rule = rule
			result.Amount = commissionAmount(amount, rule.Percentage)
		}
		results = append(results, result)
	}
	return results, nil
}

// uplineOf builds the sponsor chain for a source partner from a directory
// snapshot, direct sponsor first. A seen-set bounds the walk so corrupted
// data cannot loop it.
func uplineOf(byID map[uuid.UUID]models.Partner, sourceID uuid.UUID, maxLevels int) []models.Partner {
	if maxLevels <= 0 || maxLevels > defaultMaxLevels {
		maxLevels = defaultMaxLevels
	}

	var upline []models.Partner
	seen := map[uuid.UUID]bool{sourceID: true}

	current, ok := byID[sourceID]
	for ok && current.SponsorID != nil && len(upline) < maxLevels {
		sponsor, found := byID[*current.SponsorID]
		if !found || seen[sponsor.ID] {
			break
		}
		seen[sponsor.ID] = true
		upline = append(upline, sponsor)
		current = sponsor
	}
	return upline
}

// sumResults adds up the already-rounded per-level amounts.
func sumResults(results []levelResult) decimal.Decimal {
	total := decimal.Zero
	for _, r := range results {
		total = total.Add(r.Amount)
	}
	return total
}
