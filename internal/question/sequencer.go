package question

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/quarrel-dev/upkeep/internal/completion"
)

// systemPrompt pins the generation contract: questions and options may
// reference only the supplied equipment type and description. Invented
// brand, model or part names would poison the follow-up answers.
const systemPrompt = `You generate clarifying questions for an equipment maintenance triage flow.

Rules:
- Ask at most 5 questions, ordered most informative first.
- Reference ONLY the equipment type and the user's description given in the input. Never invent brand names, model numbers or part names.
- Each question has a "type": one of timing, symptom, context, severity, location, function.
- Each question has 3-6 selectable "options" and a short "context" string explaining why it is asked.
- If the description already contains enough detail to diagnose, return an empty array.
- If the input lists already-known matching problems, do not ask questions those problems already answer.

Respond with a JSON array of objects: {"question": "...", "type": "...", "options": ["..."], "context": "..."}.`

// Request carries the input to a follow-up generation pass.
type Request struct {
	Description   string
	Equipment     EquipmentContext
	Language      string
	KnownProblems []string // descriptions of already-matched problems
}

// Sequencer generates follow-up question batches.
type Sequencer struct {
	client completion.Client
}

// NewSequencer creates a Sequencer backed by the given completion client.
func NewSequencer(client completion.Client) *Sequencer {
	return &Sequencer{client: client}
}

// FollowUps returns an ordered batch of 0-5 post-processed questions. It
// never fails: provider errors and unparsable output fall back to the
// deterministic per-category sequence, and an unknown category degrades to
// a single generic timing question.
func (s *Sequencer) FollowUps(ctx context.Context, req Request) []Question {
	raw, err := s.client.Complete(ctx, systemPrompt, buildUserPrompt(req), completion.Options{JSON: true})
	if err != nil {
		log.Printf("question: completion failed, using fallback: %v", err)
		return FallbackQuestions(req.Equipment.Type, req.Language)
	}

	var generated []Question
	if err := completion.DecodeJSON(raw, &generated); err != nil {
		log.Printf("question: unparsable completion output, using fallback: %v", err)
		return FallbackQuestions(req.Equipment.Type, req.Language)
	}

	// An empty array is a deliberate signal that no more questions are
	// needed, not a failure.
	if len(generated) > MaxQuestions {
		generated = generated[:MaxQuestions]
	}
	for i := range generated {
		postProcess(&generated[i], i+1, req.Language)
	}
	return generated
}

// postProcess repairs a generated question in place so every question in a
// batch has a valid type, a non-empty option list and a context string.
func postProcess(q *Question, position int, language string) {
	if q.Type == "" || !ValidType(q.Type) {
		q.Type = InferType(q.Question)
	}
	if len(q.Options) == 0 {
		q.Options = DefaultOptions(q.Type, language)
	}
	if q.Context == "" {
		q.Context = positionContext(position)
	}
}

func positionContext(position int) string {
	return fmt.Sprintf("Question %d in the sequence", position)
}

// buildUserPrompt assembles the generation input.
func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Language: %s\n", req.Language)
	fmt.Fprintf(&b, "Equipment type: %s\n", req.Equipment.Type)
	if req.Equipment.Manufacturer != "" {
		fmt.Fprintf(&b, "Manufacturer: %s\n", req.Equipment.Manufacturer)
	}
	if req.Equipment.Model != "" {
		fmt.Fprintf(&b, "Model: %s\n", req.Equipment.Model)
	}
	fmt.Fprintf(&b, "\nProblem description:\n%s\n", req.Description)
	if len(req.KnownProblems) > 0 {
		b.WriteString("\nAlready-known matching problems:\n")
		for i, p := range req.KnownProblems {
			fmt.Fprintf(&b, "%d. %s\n", i+1, p)
		}
	}
	return b.String()
}
