// Package match ranks knowledge-base records against a new problem
// description. Candidate retrieval happens locally; the similarity ranking
// is delegated to the text-completion provider. Every ranking operation
// works on stable record IDs, never positional indices, and every read
// path degrades to an empty result when the provider is unavailable.
package match

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/quarrel-dev/upkeep/internal/completion"
	"github.com/quarrel-dev/upkeep/internal/models"
	"github.com/quarrel-dev/upkeep/internal/store"
	"gorm.io/gorm"
)

// DefaultLimit caps ranked result sets unless the caller asks for fewer.
const DefaultLimit = 5

const rankSystemPrompt = `You rank existing equipment problems by similarity to a new problem report.

The input lists candidates as "id: description" lines followed by the new description.
Respond with a JSON array of candidate ids (numbers) ordered from most to least similar.
Include only genuinely similar candidates; an empty array is a valid answer.
Use ONLY ids from the candidate list.`

const extractSystemPrompt = `Extract the single most likely equipment keyword (a type, manufacturer or model) from the user's free-text problem report.
Respond with JSON: {"keyword": "..."}. Use an empty keyword if none is identifiable.`

// Matcher performs retrieval plus provider-backed ranking.
type Matcher struct {
	db     *gorm.DB
	client completion.Client
}

// NewMatcher creates a Matcher.
func NewMatcher(db *gorm.DB, client completion.Client) *Matcher {
	return &Matcher{db: db, client: client}
}

// candidate is one id/description pair sent to the ranking call.
type candidate struct {
	ID          uint
	Description string
}

// FindEquipment extracts a likely equipment keyword from free text and
// retrieves matching equipment within the business. Extraction failure
// falls back to searching with the raw text.
func (m *Matcher) FindEquipment(ctx context.Context, businessID uint, text string) ([]models.Equipment, error) {
	keyword := m.extractKeyword(ctx, text)
	if keyword == "" {
		keyword = text
	}
	return store.SearchEquipment(m.db, businessID, keyword)
}

// SimilarProblems ranks problems recorded for the same equipment within the
// business by similarity to the description.
func (m *Matcher) SimilarProblems(ctx context.Context, businessID, equipmentID uint, description string, limit int) ([]models.Problem, error) {
	problems, err := store.ProblemsForEquipment(m.db, businessID, equipmentID)
	if err != nil {
		return nil, err
	}
	ranked := m.rank(ctx, description, problemCandidates(problems), limit)
	return pickProblems(problems, ranked), nil
}

// SimilarIssues ranks issues for the equipment/business pair that already
// carry a solution. The result never contains an issue outside the
// candidate set and never exceeds the limit.
func (m *Matcher) SimilarIssues(ctx context.Context, businessID, equipmentID uint, description string, limit int) ([]models.Issue, error) {
	issues, err := store.IssuesWithSolutions(m.db, businessID, equipmentID)
	if err != nil {
		return nil, err
	}
	cands := make([]candidate, len(issues))
	for i, iss := range issues {
		cands[i] = candidate{ID: iss.ID, Description: iss.Description}
	}
	ranked := m.rank(ctx, description, cands, limit)

	byID := make(map[uint]models.Issue, len(issues))
	for _, iss := range issues {
		byID[iss.ID] = iss
	}
	out := make([]models.Issue, 0, len(ranked))
	for _, id := range ranked {
		if iss, ok := byID[id]; ok {
			out = append(out, iss)
		}
	}
	return out, nil
}

// CrossBusinessMatches ranks solved problems for the equipment type across
// all businesses, surfacing solutions proven elsewhere.
func (m *Matcher) CrossBusinessMatches(ctx context.Context, equipmentType, description string, limit int) ([]models.Problem, error) {
	problems, err := store.ProblemsAcrossBusinesses(m.db, equipmentType)
	if err != nil {
		return nil, err
	}
	ranked := m.rank(ctx, description, problemCandidates(problems), limit)
	return pickProblems(problems, ranked), nil
}

// rank asks the provider to order candidate ids by similarity. Unknown ids
// are dropped, relative order is preserved, the result is capped at limit.
// Provider failure yields an empty ranking: triage degrades, it never
// blocks.
func (m *Matcher) rank(ctx context.Context, description string, cands []candidate, limit int) []uint {
	if len(cands) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var b strings.Builder
	b.WriteString("Candidates:\n")
	for _, c := range cands {
		fmt.Fprintf(&b, "%d: %s\n", c.ID, c.Description)
	}
	fmt.Fprintf(&b, "\nNew description:\n%s\n", description)

	raw, err := m.client.Complete(ctx, rankSystemPrompt, b.String(), completion.Options{JSON: true})
	if err != nil {
		log.Printf("match: ranking call failed, returning empty set: %v", err)
		return nil
	}
	var ids []uint
	if err := completion.DecodeJSON(raw, &ids); err != nil {
		log.Printf("match: unparsable ranking output, returning empty set: %v", err)
		return nil
	}

	known := make(map[uint]bool, len(cands))
	for _, c := range cands {
		known[c.ID] = true
	}
	out := make([]uint, 0, limit)
	seen := make(map[uint]bool, limit)
	for _, id := range ids {
		if !known[id] || seen[id] {
			continue
		}
		out = append(out, id)
		seen[id] = true
		if len(out) == limit {
			break
		}
	}
	return out
}

// extractKeyword asks the provider for the most likely equipment keyword in
// free text. Any failure yields an empty keyword.
func (m *Matcher) extractKeyword(ctx context.Context, text string) string {
	raw, err := m.client.Complete(ctx, extractSystemPrompt, text, completion.Options{JSON: true})
	if err != nil {
		log.Printf("match: keyword extraction failed: %v", err)
		return ""
	}
	var parsed struct {
		Keyword string `json:"keyword"`
	}
	if err := completion.DecodeJSON(raw, &parsed); err != nil {
		log.Printf("match: unparsable extraction output: %v", err)
		return ""
	}
	return strings.TrimSpace(parsed.Keyword)
}

func problemCandidates(problems []models.Problem) []candidate {
	cands := make([]candidate, len(problems))
	for i, p := range problems {
		cands[i] = candidate{ID: p.ID, Description: p.Description}
	}
	return cands
}

func pickProblems(problems []models.Problem, ranked []uint) []models.Problem {
	byID := make(map[uint]models.Problem, len(problems))
	for _, p := range problems {
		byID[p.ID] = p
	}
	out := make([]models.Problem, 0, len(ranked))
	for _, id := range ranked {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
