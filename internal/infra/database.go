package infra

import (
	"fmt"

	"github.com/tipatpati/golden-phone-management-sub010/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the SQL objects GORM cannot express
// (the sale number sequence, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations applies the schema. Shared with the integration tests so the
// container databases get the exact same DDL as deployment.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.ProductUnit{},
		&model.Sale{},
		&model.SaleItem{},
		&model.SoldProductUnit{},
		&model.SupplierTransaction{},
		&model.SupplierTransactionItem{},
		&model.StockMovement{},
		&model.StockEntry{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot handle.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// Sale numbers come from a dedicated sequence so concurrent commits
		// never collide on the unique index.
		`CREATE SEQUENCE IF NOT EXISTS sale_number_seq START 1`,
		// Partial index backing the open-claim lookup on serialized lines.
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_sale_items_serial') THEN
		    CREATE INDEX idx_sale_items_serial
		        ON sale_items (product_id, serial)
		        WHERE serial IS NOT NULL;
		  END IF;
		END $$`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("schema patch: %w", err)
		}
	}
	return nil
}
