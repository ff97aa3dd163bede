// Package db provides GORM-based database operations for vigil.
package db

import (
	"fmt"
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vigildev/vigil/pkg/models"
)

// InitialBalance is the coin grant seeded into a fresh wallet.
const InitialBalance = 100

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: Activity tier tables
		{
			ID: "001_activity_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&models.ActivityEvent{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&models.SessionBlock{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&models.Insight{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("activity_events", "session_blocks", "insights")
			},
		},

		// Migration 002: Wallet state and transaction ledger with seed grant
		{
			ID: "002_wallet",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&models.WalletState{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&models.Transaction{}); err != nil {
					return err
				}

				now := time.Now()
				state := models.WalletState{
					ID:             1,
					Balance:        InitialBalance,
					TotalEarned:    0,
					TotalSpent:     0,
					UpdatedAt:      now.Format(time.RFC3339),
					UpdatedAtEpoch: now.UnixMilli(),
				}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&state).Error; err != nil {
					return err
				}

				seed := models.NewTransaction(models.TxBonus, InitialBalance, InitialBalance, "initial grant")
				return tx.Create(seed).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("wallet_state", "transactions")
			},
		},

		// Migration 003: Audit ledger
		{
			ID: "003_audit_records",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.AuditRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("audit_records")
			},
		},

		// Migration 004: Episodic event ledger
		{
			ID: "004_episodic_events",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.EpisodicEvent{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("episodic_events")
			},
		},

		// Migration 005: Focus sessions
		{
			ID: "005_focus_sessions",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.FocusSession{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("focus_sessions")
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run gormigrate migrations: %w", err)
	}

	return nil
}
