package models

import "time"

// User is an account that reports problems and answers diagnostic questions.
type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null"`
	Email     string `gorm:"size:256;uniqueIndex"`
	Language  string `gorm:"size:8;default:en"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Business owns equipment and scopes the knowledge base. All triage queries
// are business-scoped unless explicitly cross-business.
type Business struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:256;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Equipment []Equipment `gorm:"foreignKey:BusinessID"`
}
