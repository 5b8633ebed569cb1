package store

import (
	"fmt"
	"strings"

	"github.com/quarrel-dev/upkeep/internal/models"
	"gorm.io/gorm"
)

// GetEquipment retrieves a single equipment record.
func GetEquipment(db *gorm.DB, id uint) (*models.Equipment, error) {
	var eq models.Equipment
	if err := db.First(&eq, id).Error; err != nil {
		return nil, fmt.Errorf("store: equipment %d: %w", id, notFound(err))
	}
	return &eq, nil
}

// SearchEquipment returns equipment in a business whose type, manufacturer,
// model or category case-insensitively contains the keyword. Matching is
// deliberately fuzzy: triage text rarely names an asset exactly.
func SearchEquipment(db *gorm.DB, businessID uint, keyword string) ([]models.Equipment, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(keyword)) + "%"

	var eqs []models.Equipment
	err := db.Where("business_id = ?", businessID).
		Where(
			db.Where("LOWER(type) LIKE ?", pattern).
				Or("LOWER(manufacturer) LIKE ?", pattern).
				Or("LOWER(model) LIKE ?", pattern).
				Or("LOWER(category) LIKE ?", pattern),
		).
		Order("type ASC, id ASC").
		Find(&eqs).Error
	if err != nil {
		return nil, fmt.Errorf("store: search equipment: %w", err)
	}
	return eqs, nil
}
