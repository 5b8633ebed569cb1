package models

import "time"

// Issue lifecycle statuses.
const (
	IssueOpen       = "open"
	IssueAssigned   = "assigned"
	IssueInProgress = "in_progress"
	IssueResolved   = "resolved"
)

// Issue is the operational ticket linking equipment, business and the people
// involved. Problem/Solution links are set once a diagnosis lands.
type Issue struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	EquipmentID uint   `gorm:"not null;index"`
	BusinessID  uint   `gorm:"not null;index"`
	OpenedByID  uint   `gorm:"not null"`
	AssigneeID  *uint
	SolverID    *uint
	ProblemID   *uint
	SolutionID  *uint
	Status      string `gorm:"size:16;default:open;index"`
	Description string `gorm:"type:text"`
	Cost        *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time

	Equipment Equipment `gorm:"foreignKey:EquipmentID"`
	Business  Business  `gorm:"foreignKey:BusinessID"`
	Problem   *Problem  `gorm:"foreignKey:ProblemID"`
	Solution  *Solution `gorm:"foreignKey:SolutionID"`
}
