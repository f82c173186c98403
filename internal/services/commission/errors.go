package commission

import (
	"fmt"
	"time"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/google/uuid"
)

// DuplicateTransactionError is returned when a commission calculation is
// requested for a transaction reference that already has ledger entries.
type DuplicateTransactionError struct {
	TransactionRef string
}

func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf("commissions already calculated for transaction %q", e.TransactionRef)
}

// RuleAmbiguityError signals that the rule table contains two active rules
// that tie on every tie-break criterion. The deterministic selection policy
// makes this unreachable on healthy data; if it fires, the table is corrupt
// and the walk fails loudly instead of picking an arbitrary rule.
type RuleAmbiguityError struct {
	Level   int
	RuleIDs []uuid.UUID
}

func (e *RuleAmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous commission rules at level %d: %v", e.Level, e.RuleIDs)
}

// NoUnpaidCommissionsError is returned when a payout is requested for a
// partner and period with nothing to pay.
type NoUnpaidCommissionsError struct {
	PartnerID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
}

func (e *NoUnpaidCommissionsError) Error() string {
	return fmt.Sprintf("partner %s has no unpaid commissions in [%s, %s)",
		e.PartnerID, e.PeriodStart.Format(time.RFC3339), e.PeriodEnd.Format(time.RFC3339))
}

// InvalidPayoutStateError is returned for an illegal payout state
// transition. It names both states so the caller can render an actionable
// message.
type InvalidPayoutStateError struct {
	PayoutID  uuid.UUID
	Current   models.PayoutStatus
	Attempted models.PayoutStatus
}

func (e *InvalidPayoutStateError) Error() string {
	return fmt.Sprintf("payout %s cannot move from %s to %s", e.PayoutID, e.Current, e.Attempted)
}

// PeriodClosedError is returned when a qualification write targets a period
// that has already closed.
type PeriodClosedError struct {
	PartnerID   uuid.UUID
	RuleID      uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
}

func (e *PeriodClosedError) Error() string {
	return fmt.Sprintf("qualification period [%s, %s) is closed for partner %s and rule %s",
		e.PeriodStart.Format(time.RFC3339), e.PeriodEnd.Format(time.RFC3339), e.PartnerID, e.RuleID)
}
