package db

import (
	"fmt"

	"github.com/quarrel-dev/upkeep/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Business{},
		&models.Equipment{},
		&models.Problem{},
		&models.Solution{},
		&models.Symptom{},
		&models.Issue{},
		&models.DiagnosticSession{},
		&models.TranscriptEntry{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
