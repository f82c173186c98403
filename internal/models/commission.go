package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionType tags the kind of commission a rule pays.
type CommissionType string

const (
	CommissionTypeDirect   CommissionType = "direct"
	CommissionTypeOverride CommissionType = "override"
	CommissionTypeBonus    CommissionType = "bonus"
)

// CommissionRule is one row of the versioned commission table. Rules are
// append/deactivate only: editing a rule creates a new version and
// deactivates the old one, so commissions already computed under a previous
// value are never retroactively altered.
type CommissionRule struct {
	Base
	Level      int             `gorm:"not null;index" json:"level"` // 1 = direct sponsor
	Type       CommissionType  `gorm:"type:varchar(20);not null;default:'direct'" json:"type"`
	Percentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	MinVolume  decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"min_volume"`
	MinRank    *Tier           `gorm:"type:varchar(20)" json:"min_rank,omitempty"`
	IsActive   bool            `gorm:"not null;default:true;index" json:"is_active"`
	Version    int             `gorm:"not null;default:1" json:"version"`
}

// TableName overrides the table name used by GORM.
func (CommissionRule) TableName() string {
	return "commission_rules"
}

// CommissionRecord is an immutable ledger entry for a commission earned at
// one level of a calculation walk. Once created it is never mutated except
// to flip its paid state when the covering payout is marked paid.
type CommissionRecord struct {
	Base
	PartnerID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_commission_tx_partner,unique" json:"partner_id"` // beneficiary
	Partner         Partner         `gorm:"foreignKey:PartnerID" json:"-"`
	SourcePartnerID uuid.UUID       `gorm:"type:uuid;index;not null" json:"source_partner_id"`
	SourcePartner   Partner         `gorm:"foreignKey:SourcePartnerID" json:"-"`
	Level           int             `gorm:"not null" json:"level"`
	Type            CommissionType  `gorm:"type:varchar(20);not null" json:"type"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Percentage      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	RuleID          uuid.UUID       `gorm:"type:uuid;index" json:"rule_id"`
	TransactionRef  string          `gorm:"type:varchar(100);not null;index;index:idx_commission_tx_partner,unique" json:"transaction_ref"`
	Paid            bool            `gorm:"not null;default:false;index" json:"paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	PayoutID        *uuid.UUID      `gorm:"type:uuid;index" json:"payout_id,omitempty"`
}

// TableName overrides the table name used by GORM.
func (CommissionRecord) TableName() string {
	return "commission_records"
}

// AdjustmentKind classifies a commission adjustment.
type AdjustmentKind string

const (
	AdjustmentChargeback AdjustmentKind = "chargeback"
	AdjustmentCorrection AdjustmentKind = "correction"
	AdjustmentBonus      AdjustmentKind = "bonus"
)

// CommissionAdjustment is an append-only correction entry. It references a
// commission record but never edits it in place; the record it points at
// stays exactly as it was written.
type CommissionAdjustment struct {
	Base
	RecordID  uuid.UUID        `gorm:"type:uuid;index;not null" json:"record_id"`
	Record    CommissionRecord `gorm:"foreignKey:RecordID" json:"-"`
	Kind      AdjustmentKind   `gorm:"type:varchar(20);not null" json:"kind"`
	Amount    decimal.Decimal  `gorm:"type:decimal(20,2);not null" json:"amount"`
	Reason    string           `gorm:"type:text" json:"reason"`
	CreatedBy uuid.UUID        `gorm:"type:uuid" json:"created_by"`
}

// TableName overrides the table name used by GORM.
func (CommissionAdjustment) TableName() string {
	return "commission_adjustments"
}
