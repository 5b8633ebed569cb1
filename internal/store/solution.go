package store

import (
	"fmt"
	"strings"

	"github.com/quarrel-dev/upkeep/internal/models"
	"gorm.io/gorm"
)

// GetSolution retrieves a single solution.
func GetSolution(db *gorm.DB, id uint) (*models.Solution, error) {
	var sol models.Solution
	if err := db.First(&sol, id).Error; err != nil {
		return nil, fmt.Errorf("store: solution %d: %w", id, notFound(err))
	}
	return &sol, nil
}

// RateSolution adjusts a solution's effectiveness counter by delta, flooring
// at zero. The read-modify-write is not protected against concurrent
// raters; a lost update costs one count, not correctness.
func RateSolution(db *gorm.DB, id uint, delta int) (*models.Solution, error) {
	sol, err := GetSolution(db, id)
	if err != nil {
		return nil, err
	}
	next := sol.Effectiveness + delta
	if next < 0 {
		next = 0
	}
	if err := db.Model(sol).Update("effectiveness", next).Error; err != nil {
		return nil, fmt.Errorf("store: rate solution %d: %w", id, err)
	}
	sol.Effectiveness = next
	return sol, nil
}

func lowered(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
