package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is a partner's rank in the network program. Tiers are ordered:
// Associate < Bronze < Silver < Gold < Diamond.
type Tier string

const (
	TierAssociate Tier = "associate"
	TierBronze    Tier = "bronze"
	TierSilver    Tier = "silver"
	TierGold      Tier = "gold"
	TierDiamond   Tier = "diamond"
)

var tierOrder = map[Tier]int{
	TierAssociate: 0,
	TierBronze:    1,
	TierSilver:    2,
	TierGold:      3,
	TierDiamond:   4,
}

// Rank returns the tier's position on the ordered scale, or -1 for an
// unknown tier.
func (t Tier) Rank() int {
	rank, ok := tierOrder[t]
	if !ok {
		return -1
	}
	return rank
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := tierOrder[t]
	return ok
}

// AtLeast reports whether t satisfies a minimum tier requirement.
func (t Tier) AtLeast(min Tier) bool {
	return t.Rank() >= min.Rank()
}

// Partner represents a participant enrolled in the referral program.
// The sponsor link is set once at enrollment and never changes; the sponsor
// graph is a forest (a partner can never appear in its own upline).
type Partner struct {
	Base
	UserID       uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	DisplayName  string     `gorm:"type:varchar(255);not null" json:"display_name"`
	ReferralCode string     `gorm:"type:varchar(8);uniqueIndex;not null" json:"referral_code"`
	SponsorID    *uuid.UUID `gorm:"type:uuid;index" json:"sponsor_id,omitempty"`
	Sponsor      *Partner   `gorm:"foreignKey:SponsorID" json:"-"`
	Tier         Tier       `gorm:"type:varchar(20);not null;default:'associate'" json:"tier"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`

	// Derived aggregates. These are a cache over the tree and the commission
	// ledger and may be recomputed at any time; they are never authoritative.
	DirectReferrals   int             `gorm:"not null;default:0" json:"direct_referrals"`
	NetworkSize       int             `gorm:"not null;default:0" json:"network_size"`
	NetworkDepth      int             `gorm:"not null;default:0" json:"network_depth"`
	TotalEarnings     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_earnings"`
	MonthlyCommission decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"monthly_commission"`
}

// TableName overrides the table name used by GORM.
func (Partner) TableName() string {
	return "partners"
}

// ReferralActivity is an append-only feed entry pairing a referrer with a
// newly referred partner. It is for display only and is never consulted by
// the commission math.
type ReferralActivity struct {
	Base
	ReferrerID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"referrer_id"`
	Referrer    Partner         `gorm:"foreignKey:ReferrerID" json:"-"`
	ReferredID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"referred_id"`
	Referred    Partner         `gorm:"foreignKey:ReferredID" json:"-"`
	Description string          `gorm:"type:text" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`
}

// TableName overrides the table name used by GORM.
func (ReferralActivity) TableName() string {
	return "referral_activities"
}
