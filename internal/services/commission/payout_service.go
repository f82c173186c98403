package commission

import (
	"errors"
	"fmt"
	"time"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/estatedesk/backoffice/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Period is a fixed [Start, End) evaluation window. A period is closed once
// its end has passed and is never re-opened.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Closed reports whether the window has ended as of now.
func (p Period) Closed(now time.Time) bool {
	return !now.Before(p.End)
}

// VolumeProvider reports a partner's qualifying sales volume for a period.
// The authoritative source lives in the transaction subsystem; this
// interface is how the qualification evaluation reaches it.
type VolumeProvider interface {
	VolumeInPeriod(partnerID uuid.UUID, period Period) (decimal.Decimal, error)
}

// PayoutService evaluates qualification periods and batches approved, unpaid
// commission records into payouts with an approval workflow.
type PayoutService struct {
	db      *gorm.DB
	volumes VolumeProvider
}

// NewPayoutService creates a new qualification and payout service
func NewPayoutService(db *gorm.DB, volumes VolumeProvider) *PayoutService {
	return &PayoutService{db: db, volumes: volumes}
}

// EvaluateQualification sums the partner's qualifying volume over the period
// and compares it against the rule's minimum. While the window is still open
// a miss stays pending, since volume can still arrive; only a closed period
// records a final not-qualified. Re-evaluating a period that has already
// closed with a recorded outcome is rejected.
func (s *PayoutService) EvaluateQualification(partnerID, ruleID uuid.UUID, period Period) (*models.CommissionQualification, error) {
	var rule models.CommissionRule
	if err := s.db.First(&rule, "id = ?", ruleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("rule %s not found", ruleID)
		}
		return nil, fmt.Errorf("error loading rule: %w", err)
	}

	now := time.Now()

	var existing models.CommissionQualification
	err := s.db.Where("partner_id = ? AND rule_id = ? AND period_start = ?", partnerID, ruleID, period.Start).
		First(&existing).Error
	switch {
	case err == nil:
		if period.Closed(now) {
			return nil, &PeriodClosedError{
				PartnerID:   partnerID,
				RuleID:      ruleID,
				PeriodStart: period.Start,
				PeriodEnd:   period.End,
			}
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("error finding qualification: %w", err)
	}

	volume, err := s.volumes.VolumeInPeriod(partnerID, period)
	if err != nil {
		return nil, fmt.Errorf("error looking up volume: %w", err)
	}

	status := qualificationStatus(volume, rule.MinVolume, period.Closed(now))

	qualification := models.CommissionQualification{
		PartnerID:      partnerID,
		RuleID:         ruleID,
		PeriodStart:    period.Start,
		PeriodEnd:      period.End,
		VolumeAchieved: volume,
		Status:         status,
	}

	if existing.ID != uuid.Nil {
		qualification.Base = existing.Base
		err = s.db.Model(&existing).Updates(map[string]interface{}{
			"volume_achieved": volume,
			"status":          status,
		}).Error
	} else {
		err = s.db.Create(&qualification).Error
	}
	if err != nil {
		return nil, fmt.Errorf("error writing qualification: %w", err)
	}
	return &qualification, nil
}

// qualificationStatus decides the outcome of one evaluation pass. Meeting
// the minimum is final the moment it happens; a miss stays pending until the
// window closes.
func qualificationStatus(volume, minVolume decimal.Decimal, closed bool) models.QualificationStatus {
	switch {
	case volume.GreaterThanOrEqual(minVolume):
		return models.QualificationQualified
	case closed:
		return models.QualificationNotQualified
	default:
		return models.QualificationPending
	}
}

// CreatePayout batches the partner's unpaid, unassigned commission records
// created inside the period into one pending payout. A zero sum is a
// NoUnpaidCommissionsError, never a silent zero payout.
func (s *PayoutService) CreatePayout(partnerID uuid.UUID, period Period, notes string) (*models.CommissionPayout, error) {
	var payout models.CommissionPayout

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var records []models.CommissionRecord
		err := withRowLock(tx).
			Where("partner_id = ? AND paid = ? AND payout_id IS NULL", partnerID, false).
			Where("created_at >= ? AND created_at < ?", period.Start, period.End).
			Find(&records).Error
		if err != nil {
			return fmt.Errorf("error loading unpaid commissions: %w", err)
		}

		total := decimal.Zero
		for _, record := range records {
			total = total.Add(record.Amount)
		}
		if total.IsZero() {
			return &NoUnpaidCommissionsError{
				PartnerID:   partnerID,
				PeriodStart: period.Start,
				PeriodEnd:   period.End,
			}
		}

		payout = models.CommissionPayout{
			PartnerID:   partnerID,
			PeriodStart: period.Start,
			PeriodEnd:   period.End,
			TotalAmount: total,
			Status:      models.PayoutPending,
			Notes:       notes,
			MetaData: models.JSON{
				"reference":    utils.GenerateReference("PO"),
				"record_count": len(records),
			},
		}
		if err := tx.Create(&payout).Error; err != nil {
			return fmt.Errorf("error creating payout: %w", err)
		}

		ids := make([]uuid.UUID, len(records))
		for i, record := range records {
			ids[i] = record.ID
		}
		err = tx.Model(&models.CommissionRecord{}).
			Where("id IN ?", ids).
			Update("payout_id", payout.ID).Error
		if err != nil {
			return fmt.Errorf("error linking records to payout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// Approve moves a pending payout to approved and records the approver.
func (s *PayoutService) Approve(payoutID, approverID uuid.UUID) (*models.CommissionPayout, error) {
	var payout models.CommissionPayout

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockPayout(tx, payoutID, &payout); err != nil {
			return err
		}
		if !payout.Status.CanTransition(models.PayoutApproved) {
			return &InvalidPayoutStateError{PayoutID: payoutID, Current: payout.Status, Attempted: models.PayoutApproved}
		}

		now := time.Now()
		payout.Status = models.PayoutApproved
		payout.ApprovedBy = &approverID
		payout.ApprovedAt = &now
		if err := tx.Save(&payout).Error; err != nil {
			return fmt.Errorf("error approving payout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// MarkPaid moves an approved payout to paid and flips the paid flag of every
// constituent commission record in the same transaction. Either the payout
// and all its records change together or nothing does.
func (s *PayoutService) MarkPaid(payoutID uuid.UUID) (*models.CommissionPayout, error) {
	var payout models.CommissionPayout

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockPayout(tx, payoutID, &payout); err != nil {
			return err
		}
		if !payout.Status.CanTransition(models.PayoutPaid) {
			return &InvalidPayoutStateError{PayoutID: payoutID, Current: payout.Status, Attempted: models.PayoutPaid}
		}

		now := time.Now()
		payout.Status = models.PayoutPaid
		payout.PaidAt = &now
		if err := tx.Save(&payout).Error; err != nil {
			return fmt.Errorf("error marking payout paid: %w", err)
		}

		err := tx.Model(&models.CommissionRecord{}).
			Where("payout_id = ?", payoutID).
			Updates(map[string]interface{}{
				"paid":    true,
				"paid_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("error marking commission records paid: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// Cancel terminally cancels a pending or approved payout. Constituent
// records keep their paid flag untouched and are released back for a future
// payout.
func (s *PayoutService) Cancel(payoutID uuid.UUID) (*models.CommissionPayout, error) {
	var payout models.CommissionPayout

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockPayout(tx, payoutID, &payout); err != nil {
			return err
		}
		if !payout.Status.CanTransition(models.PayoutCancelled) {
			return &InvalidPayoutStateError{PayoutID: payoutID, Current: payout.Status, Attempted: models.PayoutCancelled}
		}

		now := time.Now()
		payout.Status = models.PayoutCancelled
		payout.CancelledAt = &now
		if err := tx.Save(&payout).Error; err != nil {
			return fmt.Errorf("error cancelling payout: %w", err)
		}

		err := tx.Model(&models.CommissionRecord{}).
			Where("payout_id = ?", payoutID).
			Update("payout_id", nil).Error
		if err != nil {
			return fmt.Errorf("error releasing commission records: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// GetPayout returns a payout by id.
func (s *PayoutService) GetPayout(payoutID uuid.UUID) (*models.CommissionPayout, error) {
	var payout models.CommissionPayout
	if err := s.db.First(&payout, "id = ?", payoutID).Error; err != nil {
		return nil, fmt.Errorf("error finding payout: %w", err)
	}
	return &payout, nil
}

// ListPayouts returns a partner's payouts, newest first.
func (s *PayoutService) ListPayouts(partnerID uuid.UUID) ([]models.CommissionPayout, error) {
	var payouts []models.CommissionPayout
	err := s.db.Where("partner_id = ?", partnerID).Order("created_at DESC").Find(&payouts).Error
	if err != nil {
		return nil, fmt.Errorf("error listing payouts: %w", err)
	}
	return payouts, nil
}

// lockPayout loads a payout under a row lock inside tx.
func lockPayout(tx *gorm.DB, payoutID uuid.UUID, payout *models.CommissionPayout) error {
	err := withRowLock(tx).First(payout, "id = ?", payoutID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("payout %s not found", payoutID)
		}
		return fmt.Errorf("error loading payout: %w", err)
	}
	return nil
}

// withRowLock applies a FOR UPDATE row lock on dialects that support it.
// SQLite has no FOR UPDATE; its writes serialize on the database write lock.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
