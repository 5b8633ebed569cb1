package models

import "time"

// Equipment is a business-scoped asset. Matching during triage is fuzzy
// (case-insensitive substring over type/manufacturer/model/category), never
// strict identity.
type Equipment struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	BusinessID   uint   `gorm:"not null;index"`
	Type         string `gorm:"size:128;not null;index"`
	Manufacturer string `gorm:"size:128"`
	Model        string `gorm:"size:128"`
	Category     string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Business Business  `gorm:"foreignKey:BusinessID"`
	Problems []Problem `gorm:"foreignKey:EquipmentID"`
}
