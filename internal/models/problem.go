package models

import "time"

// Solution provenance tags.
const (
	SourceCurrentBusiness = "current_business"
	SourceOtherBusiness   = "other_business"
	SourceAIGenerated     = "ai_generated"
)

// Problem is a known failure mode of a piece of equipment, accumulated in
// the knowledge base as users report and resolve issues.
type Problem struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	EquipmentID uint   `gorm:"not null;index"`
	ReporterID  uint   `gorm:"not null"`
	Description string `gorm:"type:text;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Equipment Equipment  `gorm:"foreignKey:EquipmentID"`
	Solutions []Solution `gorm:"foreignKey:ProblemID"`
	Symptoms  []Symptom  `gorm:"many2many:problem_symptoms"`
}

// Solution is a treatment that resolved a Problem at least once.
// Effectiveness is a monotonic counter incremented on each confirmed
// success, floored at zero.
type Solution struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	ProblemID     uint   `gorm:"not null;index"`
	Treatment     string `gorm:"type:text;not null"`
	Cause         string `gorm:"type:text"`
	ResolvedBy    string `gorm:"size:128"`
	Source        string `gorm:"size:32;default:current_business"`
	Effectiveness int    `gorm:"default:0"`
	Cost          *float64
	IsExternal    bool `gorm:"default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Problem Problem `gorm:"foreignKey:ProblemID"`
}

// Symptom is a normalized raw observation, deduplicated by
// (description, equipment type) so new reports match known causes
// independent of exact wording.
type Symptom struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Description   string `gorm:"size:512;not null;uniqueIndex:idx_symptom_dedup"`
	EquipmentType string `gorm:"size:128;not null;uniqueIndex:idx_symptom_dedup"`
	CreatedAt     time.Time

	Problems []Problem `gorm:"many2many:problem_symptoms"`
}
