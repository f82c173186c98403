package commission

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatsRefresher is notified after a calculation so the network statistics
// of the partners on the walk can be refreshed. Refreshing may run
// asynchronously; the cached aggregates tolerate lag.
type StatsRefresher interface {
	RefreshChain(partnerID uuid.UUID) error
}

// Engine computes multi-level commissions for completed transactions. One
// invocation walks the source partner's sponsor chain upward, prices each
// level against the active rule snapshot, and persists the resulting ledger
// entries plus the beneficiaries' running totals in a single database
// transaction.
type Engine struct {
	db        *gorm.DB
	maxLevels int
	refresher StatsRefresher
}

// NewEngine creates a new commission calculation engine
func NewEngine(db *gorm.DB, maxLevels int) *Engine {
	if maxLevels <= 0 || maxLevels > defaultMaxLevels {
		maxLevels = defaultMaxLevels
	}
	return &Engine{db: db, maxLevels: maxLevels}
}

// SetStatsRefresher wires the refresher notified after each calculation.
func (e *Engine) SetStatsRefresher(r StatsRefresher) {
	e.refresher = r
}

// Calculate walks up the sponsor chain of the source partner and creates one
// unpaid commission record per level with an applicable rule. All records
// and aggregate updates commit atomically; a partial commission tree is
// never visible. The transaction reference deduplicates repeated delivery of
// the same completion event.
func (e *Engine) Calculate(ctx context.Context, sourcePartnerID uuid.UUID, amount decimal.Decimal, transactionRef string) ([]models.CommissionRecord, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("transaction amount must be positive, got %s", amount)
	}
	if transactionRef == "" {
		return nil, fmt.Errorf("transaction reference is required")
	}

	var records []models.CommissionRecord
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.CommissionRecord{}).
			Where("transaction_ref = ?", transactionRef).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("error checking transaction reference: %w", err)
		}
		if existing > 0 {
			return &DuplicateTransactionError{TransactionRef: transactionRef}
		}

		var source models.Partner
		if err := tx.First(&source, "id = ?", sourcePartnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("source partner %s not found", sourcePartnerID)
			}
			return fmt.Errorf("error loading source partner: %w", err)
		}

		// Snapshot the directory and the rule set once. The walk must see a
		// single consistent view even while rules are being edited.
		var partners []models.Partner
		if err := tx.Find(&partners).Error; err != nil {
			return fmt.Errorf("error loading partners: %w", err)
		}
		byID := make(map[uuid.UUID]models.Partner, len(partners))
		for _, p := range partners {
			byID[p.ID] = p
		}

		rules, err := loadActiveRules(tx)
		if err != nil {
			return err
		}

		results, err := priceUpline(uplineOf(byID, source.ID, e.maxLevels), rules, amount, e.maxLevels)
		if err != nil {
			return err
		}

		for _, result := range results {
			if result.Rule == nil {
				continue
			}

			record := models.CommissionRecord{
				PartnerID:       result.Beneficiary.ID,
				SourcePartnerID: source.ID,
				Level:           result.Level,
				Type:            result.Rule.Type,
				Amount:          result.Amount,
				Percentage:      result.Rule.Percentage,
				RuleID:          result.Rule.ID,
				TransactionRef:  transactionRef,
				Paid:            false,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("error creating commission record: %w", err)
			}

			// Increment inside the database so two concurrent calculations
			// sharing an ancestor serialize on the row instead of losing an
			// update.
			err := tx.Model(&models.Partner{}).
				Where("id = ?", result.Beneficiary.ID).
				UpdateColumns(map[string]interface{}{
					"total_earnings":     gorm.Expr("total_earnings + ?", result.Amount),
					"monthly_commission": gorm.Expr("monthly_commission + ?", result.Amount),
				}).Error
			if err != nil {
				return fmt.Errorf("error updating beneficiary totals: %w", err)
			}

			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(records) > 0 && e.refresher != nil {
		if err := e.refresher.RefreshChain(sourcePartnerID); err != nil {
			// The ledger entries are committed; the nightly sweep will catch
			// the aggregates up.
			log.Printf("stats refresh after transaction %s failed: %v", transactionRef, err)
		}
	}
	return records, nil
}
