// Package confidence computes the readiness-to-diagnose score. The score is
// a structural-completeness heuristic, not a statistical certainty measure,
// and is advisory input to the orchestrator, never a gate by itself.
package confidence

import (
	"fmt"
	"math"
)

// StructuredData holds the structured facts accumulated from follow-up
// answers.
type StructuredData struct {
	Timing   string
	Symptoms []string
	Severity string
	Context  string
}

// EquipmentData holds what is known about the equipment under diagnosis.
type EquipmentData struct {
	Manufacturer string
	Model        string
	Type         string
}

// DescriptionScore rewards material elaboration of the original description,
// capping the benefit once the enhanced text reaches twice the original
// length. Clamped to [0,1].
func DescriptionScore(original, enhanced string) float64 {
	if len(original) == 0 {
		return 0
	}
	score := float64(len(enhanced)) / float64(len(original)) / 2
	return clamp(score)
}

// StructuredDataScore awards a quarter point per structured field present.
func StructuredDataScore(d StructuredData) float64 {
	var score float64
	if d.Timing != "" {
		score += 0.25
	}
	if len(d.Symptoms) > 0 {
		score += 0.25
	}
	if d.Severity != "" {
		score += 0.25
	}
	if d.Context != "" {
		score += 0.25
	}
	return score
}

// EquipmentScore awards completeness of the equipment record.
func EquipmentScore(e EquipmentData) float64 {
	var score float64
	if e.Manufacturer != "" {
		score += 0.33
	}
	if e.Model != "" {
		score += 0.33
	}
	if e.Type != "" {
		score += 0.34
	}
	return score
}

// Score combines the three sub-scores into an integer percentage in [0,100].
func Score(original, enhanced string, d StructuredData, e EquipmentData) int {
	mean := (DescriptionScore(original, enhanced) + StructuredDataScore(d) + EquipmentScore(e)) / 3
	return int(math.Round(mean * 100))
}

// Percent formats the combined score as a percentage string.
func Percent(original, enhanced string, d StructuredData, e EquipmentData) string {
	return fmt.Sprintf("%d%%", Score(original, enhanced, d, e))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
