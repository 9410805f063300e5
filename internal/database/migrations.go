package database

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ahmtersoy23-ui/databridge/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationRecord tracks which seed migrations have been applied
type MigrationRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Version   string `gorm:"uniqueIndex;size:255"`
	AppliedAt int64  `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// uniqueIndexes back the ON CONFLICT targets used by the writers.
// AutoMigrate does not add indexes to tables that already exist.
var uniqueIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_raw_orders_order_sku ON raw_orders (amazon_order_id, sku)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_fba_inventory_wh_sku ON fba_inventory (warehouse, sku)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_marketplace_config_country ON marketplace_config (country_code)`,
}

// RunMigrations migrates the operational store schema and applies seed data
func RunMigrations(db *gorm.DB, log *logrus.Logger) error {
	log.Info("Starting database migrations...")

	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}

	modelsToMigrate := []struct {
		name  string
		model interface{}
	}{
		{"Credential", &models.Credential{}},
		{"MarketplaceConfig", &models.MarketplaceConfig{}},
		{"SyncJob", &models.SyncJob{}},
		{"RawOrder", &models.RawOrder{}},
		{"FbaInventoryItem", &models.FbaInventoryItem{}},
	}
	for _, m := range modelsToMigrate {
		if err := db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to auto-migrate %s: %w", m.name, err)
		}
		log.Debugf("%s migrated", m.name)
	}

	for _, stmt := range uniqueIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create unique index: %w", err)
		}
	}

	if err := runSQLMigrations(db, log); err != nil {
		return fmt.Errorf("failed to run SQL migrations: %w", err)
	}

	log.Info("Database migrations complete")
	return nil
}

// runSQLMigrations executes embedded SQL files in name order, once each
func runSQLMigrations(db *gorm.DB, log *logrus.Logger) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var fileNames []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			fileNames = append(fileNames, entry.Name())
		}
	}
	sort.Strings(fileNames)

	for _, fileName := range fileNames {
		var count int64
		if err := db.Model(&MigrationRecord{}).Where("version = ?", fileName).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + fileName)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", fileName, err)
		}

		for _, stmt := range splitSQLStatements(string(content)) {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", fileName, err)
			}
		}

		if err := db.Create(&MigrationRecord{Version: fileName}).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", fileName, err)
		}
		log.Infof("Applied %s", fileName)
	}
	return nil
}

// splitSQLStatements splits a script on semicolons that end a line
func splitSQLStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";\n") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
