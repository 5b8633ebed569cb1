package session

// Diagnostic session statuses, in flow order. follow_up_question_set loops
// on itself once per answered question.
const (
	StatusActive                = "active"
	StatusEnhancingDescription  = "enhancing_description"
	StatusDescriptionEnhanced   = "description_enhanced"
	StatusFollowUpQuestionSet   = "follow_up_question_set"
	StatusDiagnosisComplete     = "enhanced_diagnosis_complete"
	StatusAssignedToTechnician  = "assigned_to_technician"
	StatusSolutionSuccessful    = "solution_successful"
	StatusAISolutionSuccessful  = "ai_solution_successful"
	StatusResolved              = "resolved"
)

// ValidTransitions maps each status to its valid next statuses. Same-status
// updates are always allowed (metadata-only patches).
var ValidTransitions = map[string][]string{
	StatusActive:                {StatusEnhancingDescription, StatusFollowUpQuestionSet},
	StatusEnhancingDescription:  {StatusDescriptionEnhanced},
	StatusDescriptionEnhanced:   {StatusFollowUpQuestionSet, StatusDiagnosisComplete},
	StatusFollowUpQuestionSet:   {StatusFollowUpQuestionSet, StatusDiagnosisComplete},
	StatusDiagnosisComplete:     {StatusAssignedToTechnician, StatusSolutionSuccessful, StatusAISolutionSuccessful},
	StatusAssignedToTechnician:  {StatusResolved},
	StatusSolutionSuccessful:    {StatusResolved},
	StatusAISolutionSuccessful:  {StatusResolved},
	StatusResolved:              {},
}

// ValidStatus reports whether s is a known session status.
func ValidStatus(s string) bool {
	_, ok := ValidTransitions[s]
	return ok
}

// isValidTransition checks whether a status transition is allowed.
// Transitions to the current status are no-ops and always permitted.
func isValidTransition(from, to string) bool {
	if from == to {
		return ValidStatus(to)
	}
	for _, next := range ValidTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
