package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quarrel-dev/upkeep/internal/question"
)

// Metadata keys written by orchestrator steps.
const (
	KeyCurrentStep             = "currentStep"
	KeyLanguage                = "language"
	KeyOriginalDescription     = "originalDescription"
	KeyEnhancedDescription     = "enhancedDescription"
	KeyPotentialEquipmentTypes = "potentialEquipmentTypes"
	KeyFollowUpAnswers         = "followUpAnswers"
	KeyCurrentFollowUpQuestion = "currentFollowUpQuestion"
	KeyEnhancedDiagnosisResult = "enhancedDiagnosisResult"
)

// FollowUpAnswer records one answered follow-up question.
type FollowUpAnswer struct {
	QuestionType string    `json:"questionType"`
	Answer       string    `json:"answer"`
	Timestamp    time.Time `json:"timestamp"`
}

// Metadata is the typed view of a session's metadata document. The document
// itself stays an open JSON object: decoding tolerates unknown keys and
// merging preserves them, so no step can silently drop what another step
// wrote.
type Metadata struct {
	CurrentStep             string             `json:"currentStep,omitempty"`
	Language                string             `json:"language,omitempty"`
	OriginalDescription     string             `json:"originalDescription,omitempty"`
	EnhancedDescription     string             `json:"enhancedDescription,omitempty"`
	PotentialEquipmentTypes []string           `json:"potentialEquipmentTypes,omitempty"`
	FollowUpAnswers         []FollowUpAnswer   `json:"followUpAnswers,omitempty"`
	CurrentFollowUpQuestion *question.Question `json:"currentFollowUpQuestion,omitempty"`
	EnhancedDiagnosisResult json.RawMessage    `json:"enhancedDiagnosisResult,omitempty"`
}

// DecodeMetadata parses a session metadata document. An empty document
// yields the zero Metadata.
func DecodeMetadata(doc string) (Metadata, error) {
	var m Metadata
	if doc == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return m, fmt.Errorf("session: decode metadata: %w", err)
	}
	return m, nil
}

// MergeMetadata shallow-merges patch into the existing document: keys in
// the patch win, keys absent from the patch are preserved.
func MergeMetadata(existing string, patch map[string]interface{}) (string, error) {
	base := map[string]json.RawMessage{}
	if existing != "" {
		if err := json.Unmarshal([]byte(existing), &base); err != nil {
			return "", fmt.Errorf("session: merge metadata: existing document: %w", err)
		}
	}
	for k, v := range patch {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("session: merge metadata: key %q: %w", k, err)
		}
		base[k] = raw
	}
	out, err := json.Marshal(base)
	if err != nil {
		return "", fmt.Errorf("session: merge metadata: %w", err)
	}
	return string(out), nil
}
