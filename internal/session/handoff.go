package session

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/quarrel-dev/upkeep/internal/completion"
	"github.com/quarrel-dev/upkeep/internal/models"
	"github.com/quarrel-dev/upkeep/internal/notify"
	"github.com/quarrel-dev/upkeep/internal/store"
)

const technicianSystemPrompt = `You write a concise work order for a maintenance technician.
Summarize the problem report, the structured answers and the equipment details into a short technical brief.
Use ONLY the facts given; never invent observations or part names. Respond with plain text.`

// RecordSolutionSuccess closes a session whose user confirmed that a known
// solution worked: the solution's effectiveness counter is incremented, a
// resolved issue is written, linked to the session, and the session moves
// to solution_successful. Each session produces at most one issue.
func (o *Orchestrator) RecordSolutionSuccess(ctx context.Context, sessionID, solutionID uint) (*models.Issue, error) {
	s, err := o.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := o.ensureHandoff(s, StatusSolutionSuccessful); err != nil {
		return nil, err
	}

	sol, err := store.RateSolution(o.db, solutionID, 1)
	if err != nil {
		return nil, err
	}
	problem, err := store.GetProblem(o.db, sol.ProblemID)
	if err != nil {
		return nil, err
	}

	meta, err := DecodeMetadata(s.Metadata)
	if err != nil {
		return nil, err
	}
	description := meta.EnhancedDescription
	if description == "" {
		description = problem.Description
	}

	issue, err := store.CreateIssue(o.db, store.IssueOpts{
		EquipmentID: problem.EquipmentID,
		BusinessID:  s.BusinessID,
		OpenedByID:  s.UserID,
		Description: description,
		Status:      models.IssueResolved,
		SolverID:    &s.UserID,
		ProblemID:   &sol.ProblemID,
		SolutionID:  &sol.ID,
		Cost:        sol.Cost,
	})
	if err != nil {
		return nil, err
	}

	if err := o.linkIssue(s, issue.ID, StatusSolutionSuccessful); err != nil {
		return nil, err
	}
	return issue, nil
}

// CreateNewProblemWithSolution closes a session whose user confirmed that
// an AI-proposed fix worked for a problem not yet in the knowledge base.
// The problem, its symptoms and the solution are written atomically, a
// resolved issue is linked, and the session moves to ai_solution_successful.
func (o *Orchestrator) CreateNewProblemWithSolution(ctx context.Context, sessionID uint, opts store.ProblemOpts) (*models.Problem, error) {
	s, err := o.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := o.ensureHandoff(s, StatusAISolutionSuccessful); err != nil {
		return nil, err
	}

	if opts.ReporterID == 0 {
		opts.ReporterID = s.UserID
	}
	if opts.Source == "" {
		opts.Source = models.SourceAIGenerated
	}
	problem, err := store.CreateProblemWithSolution(o.db, opts)
	if err != nil {
		return nil, err
	}
	solutionID := problem.Solutions[0].ID

	issue, err := store.CreateIssue(o.db, store.IssueOpts{
		EquipmentID: opts.EquipmentID,
		BusinessID:  s.BusinessID,
		OpenedByID:  s.UserID,
		Description: opts.Description,
		Status:      models.IssueResolved,
		SolverID:    &s.UserID,
		ProblemID:   &problem.ID,
		SolutionID:  &solutionID,
		Cost:        opts.Cost,
	})
	if err != nil {
		return nil, err
	}

	if err := o.linkIssue(s, issue.ID, StatusAISolutionSuccessful); err != nil {
		return nil, err
	}
	return problem, nil
}

// AssignToTechnician hands an unsolved diagnosis off to a technician: an
// issue is opened with the technician brief, linked to the session, and
// the session moves to assigned_to_technician. Notification delivery is
// best-effort and never fails the handoff.
func (o *Orchestrator) AssignToTechnician(ctx context.Context, sessionID, equipmentID uint, technicianID *uint) (*models.Issue, error) {
	s, err := o.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := o.ensureHandoff(s, StatusAssignedToTechnician); err != nil {
		return nil, err
	}

	brief, err := o.TechnicianDescription(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	status := models.IssueOpen
	if technicianID != nil {
		status = models.IssueAssigned
	}
	issue, err := store.CreateIssue(o.db, store.IssueOpts{
		EquipmentID: equipmentID,
		BusinessID:  s.BusinessID,
		OpenedByID:  s.UserID,
		Description: brief,
		Status:      status,
		AssigneeID:  technicianID,
	})
	if err != nil {
		return nil, err
	}

	if err := o.linkIssue(s, issue.ID, StatusAssignedToTechnician); err != nil {
		return nil, err
	}

	if o.notifier != nil {
		n := notify.Notification{
			Subject: fmt.Sprintf("Issue #%d assigned", issue.ID),
			Body:    brief,
		}
		if err := o.notifier.Send(ctx, n); err != nil {
			log.Printf("session: notify assignment for issue %d: %v", issue.ID, err)
		}
	}
	return issue, nil
}

// TechnicianDescription renders the session into a work-order brief for a
// technician. The completion provider does the writing; when it is
// unavailable the structured facts are concatenated verbatim instead.
func (o *Orchestrator) TechnicianDescription(ctx context.Context, sessionID uint) (string, error) {
	s, err := o.Get(sessionID)
	if err != nil {
		return "", err
	}
	meta, err := DecodeMetadata(s.Metadata)
	if err != nil {
		return "", err
	}
	combined, err := o.CombinedUserText(sessionID)
	if err != nil {
		return "", err
	}

	facts := technicianFacts(meta, combined)
	brief, err := o.client.Complete(ctx, technicianSystemPrompt, facts, completion.Options{})
	if err != nil {
		log.Printf("session: technician brief for session %d: %v", sessionID, err)
		return facts, nil
	}
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return facts, nil
	}
	return brief, nil
}

// ensureHandoff rejects a handoff before any knowledge-base write: the
// session must not already carry an issue, and the terminal transition
// must be reachable from its current status.
func (o *Orchestrator) ensureHandoff(s *models.DiagnosticSession, target string) error {
	if s.IssueID != nil {
		return fmt.Errorf("%w: session %d already produced issue %d", ErrIssueLinked, s.ID, *s.IssueID)
	}
	if !isValidTransition(s.Status, target) {
		return fmt.Errorf("%w: invalid transition from %q to %q; valid: %v",
			ErrValidation, s.Status, target, ValidTransitions[s.Status])
	}
	return nil
}

// linkIssue sets the session's one-time issue reference and applies the
// terminal transition in a single update.
func (o *Orchestrator) linkIssue(s *models.DiagnosticSession, issueID uint, newStatus string) error {
	if !isValidTransition(s.Status, newStatus) {
		return fmt.Errorf("%w: invalid transition from %q to %q; valid: %v",
			ErrValidation, s.Status, newStatus, ValidTransitions[s.Status])
	}
	merged, err := MergeMetadata(s.Metadata, map[string]interface{}{
		KeyCurrentStep: newStatus,
	})
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"status":   newStatus,
		"metadata": merged,
		"issue_id": issueID,
	}
	if err := o.db.Model(s).Updates(updates).Error; err != nil {
		return fmt.Errorf("session: link issue %d to session %d: %w", issueID, s.ID, err)
	}
	s.Status = newStatus
	s.Metadata = merged
	s.IssueID = &issueID
	return nil
}

// technicianFacts formats session state into a plain fact sheet.
func technicianFacts(meta Metadata, combined string) string {
	var b strings.Builder
	description := meta.EnhancedDescription
	if description == "" {
		description = combined
	}
	fmt.Fprintf(&b, "Problem: %s\n", description)
	if len(meta.PotentialEquipmentTypes) > 0 {
		fmt.Fprintf(&b, "Equipment: %s\n", strings.Join(meta.PotentialEquipmentTypes, ", "))
	}
	for _, a := range meta.FollowUpAnswers {
		fmt.Fprintf(&b, "%s: %s\n", a.QuestionType, a.Answer)
	}
	return strings.TrimRight(b.String(), "\n")
}
