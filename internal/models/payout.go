package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QualificationStatus is the outcome of a qualification evaluation.
type QualificationStatus string

const (
	QualificationPending      QualificationStatus = "pending"
	QualificationQualified    QualificationStatus = "qualified"
	QualificationNotQualified QualificationStatus = "not_qualified"
)

// CommissionQualification records, per partner and rule, whether the
// partner's volume in a period met the rule's minimum. Exactly one row
// exists per (partner, rule, period); a period is a fixed [start, end)
// window and is never re-opened once it has closed.
type CommissionQualification struct {
	Base
	PartnerID      uuid.UUID           `gorm:"type:uuid;not null;index:idx_qualification_unique,unique" json:"partner_id"`
	Partner        Partner             `gorm:"foreignKey:PartnerID" json:"-"`
	RuleID         uuid.UUID           `gorm:"type:uuid;not null;index:idx_qualification_unique,unique" json:"rule_id"`
	Rule           CommissionRule      `gorm:"foreignKey:RuleID" json:"-"`
	PeriodStart    time.Time           `gorm:"not null;index:idx_qualification_unique,unique" json:"period_start"`
	PeriodEnd      time.Time           `gorm:"not null" json:"period_end"`
	VolumeAchieved decimal.Decimal     `gorm:"type:decimal(20,2);not null;default:0" json:"volume_achieved"`
	Status         QualificationStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
}

// TableName overrides the table name used by GORM.
func (CommissionQualification) TableName() string {
	return "commission_qualifications"
}

// PayoutStatus is a commission payout's workflow state.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutApproved  PayoutStatus = "approved"
	PayoutPaid      PayoutStatus = "paid"
	PayoutCancelled PayoutStatus = "cancelled"
)

// payoutTransitions enumerates every legal forward transition. Paid and
// Cancelled are terminal.
var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutPending:  {PayoutApproved, PayoutCancelled},
	PayoutApproved: {PayoutPaid, PayoutCancelled},
}

// CanTransition reports whether a payout in state from may move to state to.
func (from PayoutStatus) CanTransition(to PayoutStatus) bool {
	for _, next := range payoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CommissionPayout batches a partner's unpaid commission records for one
// period into a single approvable, payable unit.
type CommissionPayout struct {
	Base
	PartnerID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"partner_id"`
	Partner     Partner         `gorm:"foreignKey:PartnerID" json:"-"`
	PeriodStart time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time       `gorm:"not null" json:"period_end"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_amount"`
	Status      PayoutStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ApprovedBy  *uuid.UUID      `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
	Notes       string          `gorm:"type:text" json:"notes"`
	MetaData    JSON            `gorm:"type:jsonb" json:"metadata,omitempty"`
}

// TableName overrides the table name used by GORM.
func (CommissionPayout) TableName() string {
	return "commission_payouts"
}
