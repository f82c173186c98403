package database

import (
	"log"

	"github.com/estatedesk/backoffice/internal/models"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate runs all database migrations
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createNetworkTables(),
		createCommissionTables(),
	})

	if err := m.Migrate(); err != nil {
		log.Printf("Could not migrate: %v", err)
		return err
	}
	log.Printf("Migrations ran successfully")
	return nil
}

// createNetworkTables creates the partner tree and activity feed tables
func createNetworkTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_network_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.Partner{},
				&models.ReferralActivity{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("referral_activities", "partners")
		},
	}
}

// createCommissionTables creates the commission ledger, rule, qualification
// and payout tables
func createCommissionTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_commission_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.CommissionRule{},
				&models.CommissionRecord{},
				&models.CommissionAdjustment{},
				&models.CommissionQualification{},
				&models.CommissionPayout{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				"commission_payouts",
				"commission_qualifications",
				"commission_adjustments",
				"commission_records",
				"commission_rules",
			)
		},
	}
}
