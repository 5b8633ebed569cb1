// Package question turns an accumulated problem description into ranked,
// equipment-specific follow-up questions. Generation is delegated to the
// text-completion provider; every returned question is post-processed so
// callers always receive a usable batch, and a deterministic per-category
// fallback covers provider failure.
package question

import "strings"

// Question types. Every question carries exactly one of these.
const (
	TypeTiming   = "timing"
	TypeSymptom  = "symptom"
	TypeContext  = "context"
	TypeSeverity = "severity"
	TypeLocation = "location"
	TypeFunction = "function"
)

// MaxQuestions caps a follow-up batch.
const MaxQuestions = 5

// Types lists the fixed set of valid question types.
var Types = []string{TypeTiming, TypeSymptom, TypeContext, TypeSeverity, TypeLocation, TypeFunction}

// Question is a single clarifying question with selectable answers.
type Question struct {
	Question string   `json:"question"`
	Type     string   `json:"type"`
	Options  []string `json:"options"`
	Context  string   `json:"context"`
}

// EquipmentContext carries what is known about the equipment when
// generating questions.
type EquipmentContext struct {
	Type         string
	Manufacturer string
	Model        string
}

// ValidType reports whether t is one of the six fixed question types.
func ValidType(t string) bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

// InferType guesses a question's type from keyword matches in its text.
// Defaults to context when nothing matches.
func InferType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "when ", "how long", "how often", "since"):
		return TypeTiming
	case containsAny(lower, "where", "which part", "which side", "location"):
		return TypeLocation
	case containsAny(lower, "how severe", "how bad", "how much", "completely"):
		return TypeSeverity
	case containsAny(lower, "noise", "sound", "smell", "leak", "notice"):
		return TypeSymptom
	case containsAny(lower, "does it", "still work", "turn on", "function"):
		return TypeFunction
	default:
		return TypeContext
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
