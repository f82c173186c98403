package commission

import (
	"context"
	"testing"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePersistsRecordsAndTotals(t *testing.T) {
	db := setupTestDB(t)

	// A <- B <- C; C closes a deal.
	a := seedPartner(t, db, "Ama Mensah", models.TierGold, nil)
	b := seedPartner(t, db, "Kofi Boateng", models.TierSilver, &a.ID)
	c := seedPartner(t, db, "Yaw Owusu", models.TierAssociate, &b.ID)

	level1 := newRule(1, "10", "0", nil)
	level2 := newRule(2, "5", "0", nil)
	require.NoError(t, db.Create(&level1).Error)
	require.NoError(t, db.Create(&level2).Error)

	engine := NewEngine(db, 7)
	records, err := engine.Calculate(context.Background(), c.ID, decimal.NewFromInt(1000), "TX-1001")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, b.ID, records[0].PartnerID)
	assert.True(t, records[0].Amount.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, a.ID, records[1].PartnerID)
	assert.True(t, records[1].Amount.Equal(decimal.RequireFromString("50.00")))
	for _, record := range records {
		assert.False(t, record.Paid)
		assert.Equal(t, "TX-1001", record.TransactionRef)
		assert.Equal(t, c.ID, record.SourcePartnerID)
	}

	// Beneficiary running totals moved with the ledger.
	var reloaded models.Partner
	require.NoError(t, db.First(&reloaded, "id = ?", b.ID).Error)
	assert.True(t, reloaded.TotalEarnings.Equal(decimal.RequireFromString("100")),
		"got %s", reloaded.TotalEarnings)
	assert.True(t, reloaded.MonthlyCommission.Equal(decimal.RequireFromString("100")))
}

func TestCalculateRejectsDuplicateTransactionRef(t *testing.T) {
	db := setupTestDB(t)

	a := seedPartner(t, db, "Ama Mensah", models.TierGold, nil)
	b := seedPartner(t, db, "Kofi Boateng", models.TierSilver, &a.ID)

	rule := newRule(1, "10", "0", nil)
	require.NoError(t, db.Create(&rule).Error)

	engine := NewEngine(db, 7)
	first, err := engine.Calculate(context.Background(), b.ID, decimal.NewFromInt(1000), "TX-2002")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Redelivery of the same completion event computes nothing.
	again, err := engine.Calculate(context.Background(), b.ID, decimal.NewFromInt(1000), "TX-2002")
	assert.Nil(t, again)

	var duplicate *DuplicateTransactionError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, "TX-2002", duplicate.TransactionRef)

	var count int64
	require.NoError(t, db.Model(&models.CommissionRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "the first calculation's ledger is untouched")

	var reloaded models.Partner
	require.NoError(t, db.First(&reloaded, "id = ?", a.ID).Error)
	assert.True(t, reloaded.TotalEarnings.Equal(decimal.RequireFromString("100")),
		"rejected redelivery must not double-credit, got %s", reloaded.TotalEarnings)
}
