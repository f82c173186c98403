package commission

import (
	"testing"
	"time"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory database and migrates the commission
// schema. Capped to a single connection so every query sees the same
// in-memory store.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Partner{},
		&models.CommissionRule{},
		&models.CommissionRecord{},
		&models.CommissionQualification{},
		&models.CommissionPayout{},
	)
	require.NoError(t, err)
	return db
}

func seedPartner(t *testing.T, db *gorm.DB, name string, tier models.Tier, sponsorID *uuid.UUID) models.Partner {
	t.Helper()

	partner := models.Partner{
		UserID:            uuid.New(),
		DisplayName:       name,
		ReferralCode:      uuid.New().String()[:8],
		SponsorID:         sponsorID,
		Tier:              tier,
		IsActive:          true,
		TotalEarnings:     decimal.Zero,
		MonthlyCommission: decimal.Zero,
	}
	require.NoError(t, db.Create(&partner).Error)
	return partner
}

func seedRecord(t *testing.T, db *gorm.DB, partnerID, sourceID uuid.UUID, amount, ref string, createdAt time.Time, paid bool) models.CommissionRecord {
	t.Helper()

	record := models.CommissionRecord{
		PartnerID:       partnerID,
		SourcePartnerID: sourceID,
		Level:           1,
		Type:            models.CommissionTypeDirect,
		Amount:          decimal.RequireFromString(amount),
		Percentage:      decimal.RequireFromString("10"),
		RuleID:          uuid.New(),
		TransactionRef:  ref,
		Paid:            paid,
	}
	record.CreatedAt = createdAt
	require.NoError(t, db.Create(&record).Error)
	return record
}

// stubVolumeProvider returns a fixed volume for every lookup.
type stubVolumeProvider struct {
	volume decimal.Decimal
}

func (s stubVolumeProvider) VolumeInPeriod(partnerID uuid.UUID, period Period) (decimal.Decimal, error) {
	return s.volume, nil
}

func januaryPeriod() Period {
	return Period{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPeriodContains(t *testing.T) {
	period := januaryPeriod()

	assert.True(t, period.Contains(period.Start), "start is inclusive")
	assert.True(t, period.Contains(period.End.Add(-time.Second)))
	assert.False(t, period.Contains(period.End), "end is exclusive")
	assert.False(t, period.Contains(period.Start.Add(-time.Second)))
}

func TestPeriodClosed(t *testing.T) {
	period := januaryPeriod()

	assert.False(t, period.Closed(period.End.Add(-time.Hour)))
	assert.True(t, period.Closed(period.End))
	assert.True(t, period.Closed(period.End.Add(time.Hour)))
}

func TestInvalidPayoutStateErrorNamesBothStates(t *testing.T) {
	err := &InvalidPayoutStateError{
		PayoutID:  uuid.New(),
		Current:   models.PayoutPaid,
		Attempted: models.PayoutApproved,
	}
	assert.Contains(t, err.Error(), "paid")
	assert.Contains(t, err.Error(), "approved")
}

func TestQualificationStatus(t *testing.T) {
	min := decimal.NewFromInt(5000)

	tests := []struct {
		name   string
		volume decimal.Decimal
		closed bool
		want   models.QualificationStatus
	}{
		{"met while open", decimal.NewFromInt(5000), false, models.QualificationQualified},
		{"met after close", decimal.NewFromInt(6000), true, models.QualificationQualified},
		{"missed while open stays pending", decimal.NewFromInt(4999), false, models.QualificationPending},
		{"missed after close is final", decimal.NewFromInt(4999), true, models.QualificationNotQualified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, qualificationStatus(tt.volume, min, tt.closed))
		})
	}
}

func TestEvaluateQualificationOpenPeriodMissStaysPending(t *testing.T) {
	db := setupTestDB(t)
	partner := seedPartner(t, db, "Ama Mensah", models.TierSilver, nil)
	rule := newRule(1, "10", "5000", nil)
	require.NoError(t, db.Create(&rule).Error)

	// A window still open as of evaluation time.
	period := Period{Start: time.Now().AddDate(0, 0, -10), End: time.Now().AddDate(0, 0, 20)}

	service := NewPayoutService(db, stubVolumeProvider{volume: decimal.NewFromInt(3000)})
	qualification, err := service.EvaluateQualification(partner.ID, rule.ID, period)
	require.NoError(t, err)
	assert.Equal(t, models.QualificationPending, qualification.Status)

	// More volume arrives; the re-evaluation upgrades the same row.
	service = NewPayoutService(db, stubVolumeProvider{volume: decimal.NewFromInt(6000)})
	qualification, err = service.EvaluateQualification(partner.ID, rule.ID, period)
	require.NoError(t, err)
	assert.Equal(t, models.QualificationQualified, qualification.Status)

	var count int64
	require.NoError(t, db.Model(&models.CommissionQualification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "re-evaluation updates in place")
}

func TestEvaluateQualificationClosedPeriodIsFinal(t *testing.T) {
	db := setupTestDB(t)
	partner := seedPartner(t, db, "Kofi Boateng", models.TierGold, nil)
	rule := newRule(1, "10", "5000", nil)
	require.NoError(t, db.Create(&rule).Error)

	period := januaryPeriod()
	service := NewPayoutService(db, stubVolumeProvider{volume: decimal.NewFromInt(3000)})

	// First evaluation of an already-ended window records a final miss.
	qualification, err := service.EvaluateQualification(partner.ID, rule.ID, period)
	require.NoError(t, err)
	assert.Equal(t, models.QualificationNotQualified, qualification.Status)

	// The outcome is recorded; a second pass over the closed window is
	// rejected.
	_, err = service.EvaluateQualification(partner.ID, rule.ID, period)
	var closed *PeriodClosedError
	require.ErrorAs(t, err, &closed)
	assert.Equal(t, partner.ID, closed.PartnerID)
}

func TestCreatePayoutBatchesOnlyEligibleRecords(t *testing.T) {
	db := setupTestDB(t)
	source := seedPartner(t, db, "Yaw Owusu", models.TierAssociate, nil)
	partner := seedPartner(t, db, "Ama Mensah", models.TierGold, nil)
	period := januaryPeriod()
	inPeriod := period.Start.AddDate(0, 0, 5)

	first := seedRecord(t, db, partner.ID, source.ID, "100.00", "TX-1", inPeriod, false)
	second := seedRecord(t, db, partner.ID, source.ID, "50.00", "TX-2", inPeriod, false)
	// Already paid and outside-window records stay out of the batch.
	seedRecord(t, db, partner.ID, source.ID, "75.00", "TX-3", inPeriod, true)
	seedRecord(t, db, partner.ID, source.ID, "25.00", "TX-4", period.End.AddDate(0, 0, 1), false)

	service := NewPayoutService(db, stubVolumeProvider{volume: decimal.Zero})
	payout, err := service.CreatePayout(partner.ID, period, "January run")
	require.NoError(t, err)

	assert.Equal(t, models.PayoutPending, payout.Status)
	assert.True(t, payout.TotalAmount.Equal(decimal.RequireFromString("150.00")),
		"got %s", payout.TotalAmount)

	var linked []models.CommissionRecord
	require.NoError(t, db.Where("payout_id = ?", payout.ID).Find(&linked).Error)
	require.Len(t, linked, 2)
	for _, record := range linked {
		assert.Contains(t, []uuid.UUID{first.ID, second.ID}, record.ID)
	}
}

func TestCreatePayoutRejectsZeroSum(t *testing.T) {
	db := setupTestDB(t)
	partner := seedPartner(t, db, "Kofi Boateng", models.TierGold, nil)
	period := januaryPeriod()

	service := NewPayoutService(db, stubVolumeProvider{volume: decimal.Zero})
	payout, err := service.CreatePayout(partner.ID, period, "")
	assert.Nil(t, payout)

	var noUnpaid *NoUnpaidCommissionsError
	require.ErrorAs(t, err, &noUnpaid)
	assert.Equal(t, partner.ID, noUnpaid.PartnerID)
	assert.Equal(t, period.Start, noUnpaid.PeriodStart)

	var count int64
	require.NoError(t, db.Model(&models.CommissionPayout{}).Count(&count).Error)
	assert.Zero(t, count, "no payout row on rejection")
}

func TestPayoutLifecycleFlipsRecordsAtomically(t *testing.T) {
	db := setupTestDB(t)
	source := seedPartner(t, db, "Yaw Owusu", models.TierAssociate, nil)
	partner := seedPartner(t, db, "Ama Mensah", models.TierGold, nil)
	period := januaryPeriod()
	inPeriod := period.Start.AddDate(0, 0, 5)

	seedRecord(t, db, partner.ID, source.ID, "100.00", "TX-1", inPeriod, false)
	seedRecord(t, db, partner.ID, source.ID, "50.00", "TX-2", inPeriod, false)

	service := NewPayoutService(db, stubVolumeProvider{volume: decimal.Zero})
	payout, err := service.CreatePayout(partner.ID, period, "")
	require.NoError(t, err)

	approver := uuid.New()
	payout, err = service.Approve(payout.ID, approver)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutApproved, payout.Status)
	require.NotNil(t, payout.ApprovedBy)
	assert.Equal(t, approver, *payout.ApprovedBy)
	assert.NotNil(t, payout.ApprovedAt)

	payout, err = service.MarkPaid(payout.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutPaid, payout.Status)
	assert.NotNil(t, payout.PaidAt)

	// Every constituent record flipped with the payout.
	var records []models.CommissionRecord
	require.NoError(t, db.Where("payout_id = ?", payout.ID).Find(&records).Error)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.True(t, record.Paid)
		assert.NotNil(t, record.PaidAt)
	}

	// Paid is terminal; the service refuses further moves.
	_, err = service.Approve(payout.ID, approver)
	var invalid *InvalidPayoutStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.PayoutPaid, invalid.Current)
	assert.Equal(t, models.PayoutApproved, invalid.Attempted)
}

func TestCancelReleasesRecordsAndIsTerminal(t *testing.T) {
	db := setupTestDB(t)
	source := seedPartner(t, db, "Yaw Owusu", models.TierAssociate, nil)
	partner := seedPartner(t, db, "Ama Mensah", models.TierGold, nil)
	period := januaryPeriod()

	record := seedRecord(t, db, partner.ID, source.ID, "100.00", "TX-1", period.Start.AddDate(0, 0, 5), false)

	service := NewPayoutService(db, stubVolumeProvider{volume: decimal.Zero})
	payout, err := service.CreatePayout(partner.ID, period, "")
	require.NoError(t, err)

	payout, err = service.Cancel(payout.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutCancelled, payout.Status)
	assert.NotNil(t, payout.CancelledAt)

	// The record is released unpaid, available for a future payout.
	var released models.CommissionRecord
	require.NoError(t, db.First(&released, "id = ?", record.ID).Error)
	assert.Nil(t, released.PayoutID)
	assert.False(t, released.Paid)

	_, err = service.MarkPaid(payout.ID)
	var invalid *InvalidPayoutStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.PayoutCancelled, invalid.Current)
	assert.Equal(t, models.PayoutPaid, invalid.Attempted)
}
