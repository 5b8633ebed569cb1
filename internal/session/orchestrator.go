// Package session owns the diagnostic conversation: the status machine,
// the transcript, the additively-merged metadata document, and the terminal
// handoffs into the knowledge base. Every transition is caused by an
// orchestrator operation; nothing here is timer-driven.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/quarrel-dev/upkeep/internal/completion"
	"github.com/quarrel-dev/upkeep/internal/confidence"
	"github.com/quarrel-dev/upkeep/internal/match"
	"github.com/quarrel-dev/upkeep/internal/models"
	"github.com/quarrel-dev/upkeep/internal/notify"
	"github.com/quarrel-dev/upkeep/internal/question"
	"github.com/quarrel-dev/upkeep/internal/store"
)

// Transcript roles.
const (
	RoleUser      = "user"
	RoleSystem    = "system"
	RoleAssistant = "assistant"
)

// ErrValidation indicates a malformed request, rejected before any state
// mutation.
var ErrValidation = errors.New("session: validation failure")

// ErrIssueLinked indicates an attempt to re-link a session whose issue
// reference is already set.
var ErrIssueLinked = errors.New("session: issue already linked")

const enhanceSystemPrompt = `You rewrite a user's equipment problem report into a clear, detailed maintenance description.
Keep the user's language. Use ONLY facts stated in the report; never invent observations, brands or part names.
Respond with the rewritten description as plain text.`

// Orchestrator drives diagnostic sessions. Operations on the same session
// are expected to be serialized by the caller; independent sessions may be
// processed concurrently.
type Orchestrator struct {
	db        *gorm.DB
	client    completion.Client
	sequencer *question.Sequencer
	matcher   *match.Matcher
	notifier  notify.Notifier
	language  string
}

// Opts holds parameters for creating an Orchestrator.
type Opts struct {
	DB       *gorm.DB
	Client   completion.Client
	Notifier notify.Notifier // optional
	Language string          // default language tag, defaults to "en"
}

// New creates an Orchestrator.
func New(opts Opts) (*Orchestrator, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("session: orchestrator: db is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("session: orchestrator: completion client is required")
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	return &Orchestrator{
		db:        opts.DB,
		client:    opts.Client,
		sequencer: question.NewSequencer(opts.Client),
		matcher:   match.NewMatcher(opts.DB, opts.Client),
		notifier:  opts.Notifier,
		language:  lang,
	}, nil
}

// CreateSession starts a new diagnostic session for a (user, business)
// pair. Fails with store.ErrNotFound when either reference does not
// resolve.
func (o *Orchestrator) CreateSession(ctx context.Context, userID, businessID uint) (*models.DiagnosticSession, error) {
	var user models.User
	if err := o.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session: user %d: %w", userID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("session: check user %d: %w", userID, err)
	}
	var business models.Business
	if err := o.db.First(&business, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session: business %d: %w", businessID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("session: check business %d: %w", businessID, err)
	}

	lang := user.Language
	if lang == "" {
		lang = o.language
	}
	meta, err := MergeMetadata("", map[string]interface{}{
		KeyCurrentStep: "created",
		KeyLanguage:    lang,
	})
	if err != nil {
		return nil, err
	}

	s := models.DiagnosticSession{
		UserID:     userID,
		BusinessID: businessID,
		Status:     StatusActive,
		Metadata:   meta,
	}
	if err := o.db.Create(&s).Error; err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	return &s, nil
}

// Get retrieves a session by id.
func (o *Orchestrator) Get(sessionID uint) (*models.DiagnosticSession, error) {
	var s models.DiagnosticSession
	if err := o.db.First(&s, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session: %d: %w", sessionID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("session: get %d: %w", sessionID, err)
	}
	return &s, nil
}

// AddMessage appends a transcript entry. The entry inherits the session's
// language unless the caller's metadata overrides it.
func (o *Orchestrator) AddMessage(ctx context.Context, sessionID uint, content, role string, meta map[string]interface{}) (*models.TranscriptEntry, error) {
	if role != RoleUser && role != RoleSystem && role != RoleAssistant {
		return nil, fmt.Errorf("%w: invalid role %q", ErrValidation, role)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	s, err := o.Get(sessionID)
	if err != nil {
		return nil, err
	}

	sessionMeta, err := DecodeMetadata(s.Metadata)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = map[string]interface{}{}
	}
	if _, ok := meta[KeyLanguage]; !ok && sessionMeta.Language != "" {
		meta[KeyLanguage] = sessionMeta.Language
	}
	entryMeta, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("session: marshal entry metadata: %w", err)
	}

	entry := models.TranscriptEntry{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  string(entryMeta),
	}
	if err := o.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("session: add message: %w", err)
	}
	return &entry, nil
}

// Transcript returns all entries for a session in creation order.
func (o *Orchestrator) Transcript(sessionID uint) ([]models.TranscriptEntry, error) {
	if _, err := o.Get(sessionID); err != nil {
		return nil, err
	}
	var entries []models.TranscriptEntry
	err := o.db.Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("session: transcript %d: %w", sessionID, err)
	}
	return entries, nil
}

// UpdateStatus validates and applies a status transition, merging the patch
// into the session metadata. Keys in the patch win; keys absent from the
// patch are preserved. A same-status update with an empty patch is a no-op
// beyond timestamps.
func (o *Orchestrator) UpdateStatus(sessionID uint, newStatus string, patch map[string]interface{}) (*models.DiagnosticSession, error) {
	if !ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}
	s, err := o.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(s.Status, newStatus) {
		return nil, fmt.Errorf("%w: invalid transition from %q to %q; valid: %v",
			ErrValidation, s.Status, newStatus, ValidTransitions[s.Status])
	}

	merged, err := MergeMetadata(s.Metadata, patch)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"status": newStatus, "metadata": merged}
	if err := o.db.Model(s).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("session: update status %d: %w", sessionID, err)
	}
	s.Status = newStatus
	s.Metadata = merged
	return s, nil
}

// CombinedUserText reconstructs the user's accumulated description by
// concatenating user-role entries in creation order.
func (o *Orchestrator) CombinedUserText(sessionID uint) (string, error) {
	entries, err := o.Transcript(sessionID)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, e := range entries {
		if e.Role == RoleUser {
			parts = append(parts, e.Content)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// EnhanceDescription rewrites the combined user text into a detailed
// maintenance description via the completion provider, then walks the
// session through enhancing_description to description_enhanced. The
// provider call happens first, so a failure leaves the session untouched.
func (o *Orchestrator) EnhanceDescription(ctx context.Context, sessionID uint) (string, error) {
	s, err := o.Get(sessionID)
	if err != nil {
		return "", err
	}
	original, err := o.CombinedUserText(sessionID)
	if err != nil {
		return "", err
	}
	if original == "" {
		return "", fmt.Errorf("%w: session has no user messages", ErrValidation)
	}

	enhanced, err := o.client.Complete(ctx, enhanceSystemPrompt, original, completion.Options{})
	if err != nil {
		return "", fmt.Errorf("session: enhance description: %w", err)
	}
	enhanced = strings.TrimSpace(enhanced)
	if enhanced == "" {
		enhanced = original
	}

	if _, err := o.UpdateStatus(s.ID, StatusEnhancingDescription, map[string]interface{}{
		KeyCurrentStep:         "enhancing_description",
		KeyOriginalDescription: original,
	}); err != nil {
		return "", err
	}
	if _, err := o.UpdateStatus(s.ID, StatusDescriptionEnhanced, map[string]interface{}{
		KeyCurrentStep:         "description_enhanced",
		KeyEnhancedDescription: enhanced,
	}); err != nil {
		return "", err
	}
	return enhanced, nil
}

// SetFollowUpQuestion records the pending question and moves the session
// into (or around) the follow-up loop.
func (o *Orchestrator) SetFollowUpQuestion(sessionID uint, q question.Question) (*models.DiagnosticSession, error) {
	return o.UpdateStatus(sessionID, StatusFollowUpQuestionSet, map[string]interface{}{
		KeyCurrentStep:             "follow_up_question_set",
		KeyCurrentFollowUpQuestion: q,
	})
}

// AnswerFollowUp appends the user's answer to the accumulated follow-up
// answers and clears the pending question. The answers array is replaced
// wholesale under its own key; sibling keys are untouched.
func (o *Orchestrator) AnswerFollowUp(ctx context.Context, sessionID uint, questionType, answer string) (*models.DiagnosticSession, error) {
	if answer == "" {
		return nil, fmt.Errorf("%w: answer is required", ErrValidation)
	}
	s, err := o.Get(sessionID)
	if err != nil {
		return nil, err
	}
	meta, err := DecodeMetadata(s.Metadata)
	if err != nil {
		return nil, err
	}
	answers := append(meta.FollowUpAnswers, FollowUpAnswer{
		QuestionType: questionType,
		Answer:       answer,
		Timestamp:    time.Now().UTC(),
	})

	if _, err := o.AddMessage(ctx, sessionID, answer, RoleUser, map[string]interface{}{
		"step":         "follow_up_answer",
		"questionType": questionType,
	}); err != nil {
		return nil, err
	}
	return o.UpdateStatus(sessionID, StatusFollowUpQuestionSet, map[string]interface{}{
		KeyCurrentStep:             "follow_up_answered",
		KeyFollowUpAnswers:         answers,
		KeyCurrentFollowUpQuestion: nil,
	})
}

// Analysis is the result of a follow-up analysis pass.
type Analysis struct {
	IsDiagnosisReady bool                `json:"isDiagnosisReady"`
	Questions        []question.Question `json:"questions"`
	Confidence       string              `json:"confidence"`
	Equipment        []models.Equipment  `json:"equipment,omitempty"`
	SimilarProblems  []models.Problem    `json:"similarProblems,omitempty"`
	SimilarIssues    []models.Issue      `json:"similarIssues,omitempty"`
	CrossMatches     []models.Problem    `json:"crossMatches,omitempty"`
	Summary          string              `json:"summary,omitempty"`
}

// Analyze reconstructs the accumulated description and asks the question
// sequencer for follow-ups, feeding it any already-matched problems so
// equivalent issues are not asked about again. Zero questions means the
// matcher and scorer produce a terminal summary. Analyze persists nothing;
// recording the outcome is the caller's follow-on UpdateStatus/AddMessage.
func (o *Orchestrator) Analyze(ctx context.Context, sessionID uint) (*Analysis, error) {
	s, err := o.Get(sessionID)
	if err != nil {
		return nil, err
	}
	meta, err := DecodeMetadata(s.Metadata)
	if err != nil {
		return nil, err
	}
	combined, err := o.CombinedUserText(sessionID)
	if err != nil {
		return nil, err
	}

	lang := meta.Language
	if lang == "" {
		lang = o.language
	}
	description := meta.EnhancedDescription
	if description == "" {
		description = combined
	}

	equipment, eqCtx := o.resolveEquipment(ctx, s.BusinessID, meta, description)

	var similar []models.Problem
	if len(equipment) > 0 {
		similar, err = o.matcher.SimilarProblems(ctx, s.BusinessID, equipment[0].ID, description, match.DefaultLimit)
		if err != nil {
			return nil, err
		}
	}
	known := make([]string, len(similar))
	for i, p := range similar {
		known[i] = p.Description
	}

	questions := o.sequencer.FollowUps(ctx, question.Request{
		Description:   description,
		Equipment:     eqCtx,
		Language:      lang,
		KnownProblems: known,
	})

	score := o.confidence(meta, combined, eqCtx)
	analysis := &Analysis{
		Questions:       questions,
		Confidence:      score,
		Equipment:       equipment,
		SimilarProblems: similar,
	}
	if len(questions) > 0 {
		return analysis, nil
	}

	analysis.IsDiagnosisReady = true
	if len(equipment) > 0 {
		issues, err := o.matcher.SimilarIssues(ctx, s.BusinessID, equipment[0].ID, description, match.DefaultLimit)
		if err != nil {
			return nil, err
		}
		analysis.SimilarIssues = issues
	}
	crosses, err := o.matcher.CrossBusinessMatches(ctx, eqCtx.Type, description, match.DefaultLimit)
	if err != nil {
		return nil, err
	}
	analysis.CrossMatches = crosses
	analysis.Summary = buildSummary(description, score, analysis)
	return analysis, nil
}

// SimilarIssues ranks the session's business-local solved issues for one
// equipment record against the session's accumulated description.
func (o *Orchestrator) SimilarIssues(ctx context.Context, sessionID, equipmentID uint) ([]models.Issue, error) {
	s, description, err := o.sessionDescription(sessionID)
	if err != nil {
		return nil, err
	}
	return o.matcher.SimilarIssues(ctx, s.BusinessID, equipmentID, description, match.DefaultLimit)
}

// CrossBusinessMatches ranks problems solved at other businesses against
// the session's accumulated description. An empty equipmentType falls back
// to the types already identified on the session.
func (o *Orchestrator) CrossBusinessMatches(ctx context.Context, sessionID uint, equipmentType string) ([]models.Problem, error) {
	s, description, err := o.sessionDescription(sessionID)
	if err != nil {
		return nil, err
	}
	if equipmentType == "" {
		meta, err := DecodeMetadata(s.Metadata)
		if err != nil {
			return nil, err
		}
		if len(meta.PotentialEquipmentTypes) > 0 {
			equipmentType = meta.PotentialEquipmentTypes[0]
		}
	}
	return o.matcher.CrossBusinessMatches(ctx, equipmentType, description, match.DefaultLimit)
}

// RunEnhancedDiagnosis runs the terminal matching and scoring pass, persists
// the result on the session and moves it to enhanced_diagnosis_complete.
// It refuses while follow-up questions remain, so the follow-up loop cannot
// be skipped.
func (o *Orchestrator) RunEnhancedDiagnosis(ctx context.Context, sessionID uint) (*Analysis, error) {
	analysis, err := o.Analyze(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !analysis.IsDiagnosisReady {
		return nil, fmt.Errorf("%w: %d follow-up question(s) remain", ErrValidation, len(analysis.Questions))
	}
	if _, err := o.UpdateStatus(sessionID, StatusDiagnosisComplete, map[string]interface{}{
		KeyCurrentStep:             "enhanced_diagnosis_complete",
		KeyEnhancedDiagnosisResult: analysis,
	}); err != nil {
		return nil, err
	}
	return analysis, nil
}

// sessionDescription loads the session and returns its best available
// description: the enhanced one when present, otherwise the combined user
// text.
func (o *Orchestrator) sessionDescription(sessionID uint) (*models.DiagnosticSession, string, error) {
	s, err := o.Get(sessionID)
	if err != nil {
		return nil, "", err
	}
	meta, err := DecodeMetadata(s.Metadata)
	if err != nil {
		return nil, "", err
	}
	if meta.EnhancedDescription != "" {
		return s, meta.EnhancedDescription, nil
	}
	combined, err := o.CombinedUserText(sessionID)
	if err != nil {
		return nil, "", err
	}
	return s, combined, nil
}

// resolveEquipment prefers equipment already identified in metadata and
// falls back to a matcher lookup over the description.
func (o *Orchestrator) resolveEquipment(ctx context.Context, businessID uint, meta Metadata, description string) ([]models.Equipment, question.EquipmentContext) {
	var equipment []models.Equipment
	if len(meta.PotentialEquipmentTypes) > 0 {
		eqs, err := store.SearchEquipment(o.db, businessID, meta.PotentialEquipmentTypes[0])
		if err == nil {
			equipment = eqs
		}
	}
	if len(equipment) == 0 {
		eqs, err := o.matcher.FindEquipment(ctx, businessID, description)
		if err == nil {
			equipment = eqs
		} else {
			log.Printf("session: equipment lookup failed: %v", err)
		}
	}

	eqCtx := question.EquipmentContext{}
	if len(equipment) > 0 {
		eqCtx = question.EquipmentContext{
			Type:         equipment[0].Type,
			Manufacturer: equipment[0].Manufacturer,
			Model:        equipment[0].Model,
		}
	} else if len(meta.PotentialEquipmentTypes) > 0 {
		eqCtx.Type = meta.PotentialEquipmentTypes[0]
	}
	return equipment, eqCtx
}

// confidence derives the structural-completeness score from session state.
func (o *Orchestrator) confidence(meta Metadata, combined string, eqCtx question.EquipmentContext) string {
	data := confidence.StructuredData{}
	for _, a := range meta.FollowUpAnswers {
		switch a.QuestionType {
		case question.TypeTiming:
			data.Timing = a.Answer
		case question.TypeSymptom:
			data.Symptoms = append(data.Symptoms, a.Answer)
		case question.TypeSeverity:
			data.Severity = a.Answer
		default:
			data.Context = a.Answer
		}
	}
	original := meta.OriginalDescription
	if original == "" {
		original = combined
	}
	enhanced := meta.EnhancedDescription
	if enhanced == "" {
		enhanced = combined
	}
	return confidence.Percent(original, enhanced, data, confidence.EquipmentData{
		Manufacturer: eqCtx.Manufacturer,
		Model:        eqCtx.Model,
		Type:         eqCtx.Type,
	})
}

func buildSummary(description, score string, a *Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Diagnosis readiness %s for: %s\n", score, description)
	if len(a.SimilarIssues) > 0 {
		fmt.Fprintf(&b, "%d previously solved issue(s) in this business match.\n", len(a.SimilarIssues))
	}
	if len(a.CrossMatches) > 0 {
		fmt.Fprintf(&b, "%d solution(s) proven at other businesses match.\n", len(a.CrossMatches))
	}
	if len(a.SimilarIssues) == 0 && len(a.CrossMatches) == 0 {
		b.WriteString("No matching prior problems found; technician review recommended.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
