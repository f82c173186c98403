package commission

import (
	"errors"
	"fmt"
	"time"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerService answers queries over the commission ledger and appends
// adjustment entries. Ledger rows themselves are immutable; corrections are
// separate entries referencing the original record.
type LedgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a new commission ledger service
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// ListRecords returns a partner's commission records, newest first.
func (s *LedgerService) ListRecords(partnerID uuid.UUID, limit int) ([]models.CommissionRecord, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var records []models.CommissionRecord
	err := s.db.Where("partner_id = ?", partnerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("error listing commission records: %w", err)
	}
	return records, nil
}

// CreateAdjustment appends a correction, chargeback or bonus entry against a
// commission record. The record itself is never edited.
func (s *LedgerService) CreateAdjustment(recordID uuid.UUID, kind models.AdjustmentKind, amount decimal.Decimal, reason string, createdBy uuid.UUID) (*models.CommissionAdjustment, error) {
	switch kind {
	case models.AdjustmentChargeback, models.AdjustmentCorrection, models.AdjustmentBonus:
	default:
		return nil, fmt.Errorf("unknown adjustment kind %q", kind)
	}

	var record models.CommissionRecord
	if err := s.db.First(&record, "id = ?", recordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("commission record %s not found", recordID)
		}
		return nil, fmt.Errorf("error loading commission record: %w", err)
	}

	adjustment := models.CommissionAdjustment{
		RecordID:  recordID,
		Kind:      kind,
		Amount:    amount,
		Reason:    reason,
		CreatedBy: createdBy,
	}
	if err := s.db.Create(&adjustment).Error; err != nil {
		return nil, fmt.Errorf("error creating adjustment: %w", err)
	}
	return &adjustment, nil
}

// ListAdjustments returns the adjustments recorded against one record.
func (s *LedgerService) ListAdjustments(recordID uuid.UUID) ([]models.CommissionAdjustment, error) {
	var adjustments []models.CommissionAdjustment
	err := s.db.Where("record_id = ?", recordID).Order("created_at ASC").Find(&adjustments).Error
	if err != nil {
		return nil, fmt.Errorf("error listing adjustments: %w", err)
	}
	return adjustments, nil
}

// EarningsSummary aggregates a partner's ledger position.
type EarningsSummary struct {
	PartnerID     uuid.UUID       `json:"partner_id"`
	Lifetime      decimal.Decimal `json:"lifetime"`
	MonthToDate   decimal.Decimal `json:"month_to_date"`
	UnpaidBalance decimal.Decimal `json:"unpaid_balance"`
}

// Summary computes lifetime, month-to-date and unpaid totals from the
// ledger. It reads the ledger, not the cached partner aggregates, so it can
// be used to verify them.
func (s *LedgerService) Summary(partnerID uuid.UUID) (*EarningsSummary, error) {
	summary := EarningsSummary{PartnerID: partnerID}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	rows := []struct {
		name  string
		dest  *decimal.Decimal
		query *gorm.DB
	}{
		{"lifetime", &summary.Lifetime,
			s.db.Model(&models.CommissionRecord{}).Where("partner_id = ?", partnerID)},
		{"month to date", &summary.MonthToDate,
			s.db.Model(&models.CommissionRecord{}).Where("partner_id = ? AND created_at >= ?", partnerID, monthStart)},
		{"unpaid balance", &summary.UnpaidBalance,
			s.db.Model(&models.CommissionRecord{}).Where("partner_id = ? AND paid = ?", partnerID, false)},
	}
	for _, row := range rows {
		var total decimal.NullDecimal
		if err := row.query.Select("SUM(amount)").Scan(&total).Error; err != nil {
			return nil, fmt.Errorf("error computing %s earnings: %w", row.name, err)
		}
		if total.Valid {
			*row.dest = total.Decimal
		} else {
			*row.dest = decimal.Zero
		}
	}
	return &summary, nil
}

// ResetMonthlyTotals zeroes every partner's current-period commission
// counter at the start of a new calendar month. The ledger itself is
// untouched; the counter is a cache over it.
func (s *LedgerService) ResetMonthlyTotals() error {
	err := s.db.Model(&models.Partner{}).
		Where("monthly_commission <> ?", decimal.Zero).
		Update("monthly_commission", decimal.Zero).Error
	if err != nil {
		return fmt.Errorf("error resetting monthly commission totals: %w", err)
	}
	return nil
}

// LedgerVolumeProvider derives a partner's qualifying volume from the
// commission ledger: the sum of transaction-sourced commission bases the
// partner originated in the period. It stands in for the transaction
// subsystem, which owns the authoritative volume numbers.
type LedgerVolumeProvider struct {
	db *gorm.DB
}

// NewLedgerVolumeProvider creates a ledger-backed volume provider
func NewLedgerVolumeProvider(db *gorm.DB) *LedgerVolumeProvider {
	return &LedgerVolumeProvider{db: db}
}

// VolumeInPeriod implements VolumeProvider.
func (p *LedgerVolumeProvider) VolumeInPeriod(partnerID uuid.UUID, period Period) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := p.db.Model(&models.CommissionRecord{}).
		Where("source_partner_id = ? AND level = ? AND created_at >= ? AND created_at < ?",
			partnerID, 1, period.Start, period.End).
		Select("SUM(amount * 100 / percentage)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("error summing period volume: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal.Round(2), nil
}
