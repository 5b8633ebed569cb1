package store

import (
	"fmt"
	"time"

	"github.com/quarrel-dev/upkeep/internal/models"
	"gorm.io/gorm"
)

// IssueOpts holds parameters for opening an issue.
type IssueOpts struct {
	EquipmentID uint
	BusinessID  uint
	OpenedByID  uint
	Description string
	Status      string // defaults to open
	AssigneeID  *uint
	SolverID    *uint
	ProblemID   *uint
	SolutionID  *uint
	Cost        *float64
}

// issueTransitions maps each issue status to its valid next statuses.
var issueTransitions = map[string][]string{
	models.IssueOpen:       {models.IssueAssigned, models.IssueInProgress, models.IssueResolved},
	models.IssueAssigned:   {models.IssueInProgress, models.IssueResolved},
	models.IssueInProgress: {models.IssueResolved},
	models.IssueResolved:   {},
}

// CreateIssue opens a new issue.
func CreateIssue(db *gorm.DB, opts IssueOpts) (*models.Issue, error) {
	if opts.Status == "" {
		opts.Status = models.IssueOpen
	}
	issue := models.Issue{
		EquipmentID: opts.EquipmentID,
		BusinessID:  opts.BusinessID,
		OpenedByID:  opts.OpenedByID,
		Description: opts.Description,
		Status:      opts.Status,
		AssigneeID:  opts.AssigneeID,
		SolverID:    opts.SolverID,
		ProblemID:   opts.ProblemID,
		SolutionID:  opts.SolutionID,
		Cost:        opts.Cost,
	}
	if opts.Status == models.IssueResolved {
		now := time.Now()
		issue.ResolvedAt = &now
	}
	if err := db.Create(&issue).Error; err != nil {
		return nil, fmt.Errorf("store: create issue: %w", err)
	}
	return &issue, nil
}

// GetIssue retrieves a single issue.
func GetIssue(db *gorm.DB, id uint) (*models.Issue, error) {
	var issue models.Issue
	if err := db.First(&issue, id).Error; err != nil {
		return nil, fmt.Errorf("store: issue %d: %w", id, notFound(err))
	}
	return &issue, nil
}

// ListIssues returns issues for an equipment/business pair, optionally
// filtered by status, newest first.
func ListIssues(db *gorm.DB, businessID, equipmentID uint, status string) ([]models.Issue, error) {
	q := db.Where("business_id = ? AND equipment_id = ?", businessID, equipmentID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var issues []models.Issue
	if err := q.Order("created_at DESC").Find(&issues).Error; err != nil {
		return nil, fmt.Errorf("store: list issues: %w", err)
	}
	return issues, nil
}

// IssuesWithSolutions returns issues for an equipment/business pair that
// already carry a recorded solution, the candidate set for similar-issue
// matching.
func IssuesWithSolutions(db *gorm.DB, businessID, equipmentID uint) ([]models.Issue, error) {
	var issues []models.Issue
	err := db.Preload("Solution").
		Where("business_id = ? AND equipment_id = ? AND solution_id IS NOT NULL", businessID, equipmentID).
		Order("id ASC").
		Find(&issues).Error
	if err != nil {
		return nil, fmt.Errorf("store: issues with solutions: %w", err)
	}
	return issues, nil
}

// UpdateIssueStatus validates and applies an issue lifecycle transition.
func UpdateIssueStatus(db *gorm.DB, id uint, newStatus string) (*models.Issue, error) {
	issue, err := GetIssue(db, id)
	if err != nil {
		return nil, err
	}
	if issue.Status != newStatus && !validIssueTransition(issue.Status, newStatus) {
		return nil, fmt.Errorf("store: invalid issue transition from %q to %q; valid: %v",
			issue.Status, newStatus, issueTransitions[issue.Status])
	}

	updates := map[string]interface{}{"status": newStatus}
	if newStatus == models.IssueResolved && issue.ResolvedAt == nil {
		updates["resolved_at"] = time.Now()
	}
	if err := db.Model(issue).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("store: update issue %d status: %w", id, err)
	}
	issue.Status = newStatus
	return issue, nil
}

func validIssueTransition(from, to string) bool {
	for _, next := range issueTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
