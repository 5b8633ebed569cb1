package store

import (
	"fmt"

	"github.com/quarrel-dev/upkeep/internal/models"
	"gorm.io/gorm"
)

// ProblemOpts holds parameters for recording a new problem with its first
// solution.
type ProblemOpts struct {
	EquipmentID   uint
	ReporterID    uint
	Description   string
	Symptoms      []string // raw observations, deduplicated per equipment type
	Treatment     string
	Cause         string
	ResolvedBy    string
	Source        string // defaults to current_business
	Cost          *float64
	IsExternal    bool
	EquipmentType string // used as the symptom dedup key
}

// GetProblem retrieves a problem with its solutions and symptoms.
func GetProblem(db *gorm.DB, id uint) (*models.Problem, error) {
	var p models.Problem
	if err := db.Preload("Solutions").Preload("Symptoms").First(&p, id).Error; err != nil {
		return nil, fmt.Errorf("store: problem %d: %w", id, notFound(err))
	}
	return &p, nil
}

// ProblemsForEquipment returns problems for one equipment record within a
// business, with their solutions preloaded.
func ProblemsForEquipment(db *gorm.DB, businessID, equipmentID uint) ([]models.Problem, error) {
	var problems []models.Problem
	err := db.Preload("Solutions").
		Joins("JOIN equipment ON equipment.id = problems.equipment_id").
		Where("problems.equipment_id = ? AND equipment.business_id = ?", equipmentID, businessID).
		Order("problems.id ASC").
		Find(&problems).Error
	if err != nil {
		return nil, fmt.Errorf("store: problems for equipment %d: %w", equipmentID, err)
	}
	return problems, nil
}

// ProblemsAcrossBusinesses returns problems for a matching equipment type
// regardless of owning business, used to surface solutions proven
// elsewhere. Only problems with at least one solution are returned.
func ProblemsAcrossBusinesses(db *gorm.DB, equipmentType string) ([]models.Problem, error) {
	var problems []models.Problem
	q := db.Preload("Solutions").
		Joins("JOIN equipment ON equipment.id = problems.equipment_id").
		Where("EXISTS (SELECT 1 FROM solutions WHERE solutions.problem_id = problems.id)")
	if equipmentType != "" {
		q = q.Where("LOWER(equipment.type) LIKE ?", "%"+lowered(equipmentType)+"%")
	}
	if err := q.Order("problems.id ASC").Find(&problems).Error; err != nil {
		return nil, fmt.Errorf("store: cross-business problems: %w", err)
	}
	return problems, nil
}

// CreateProblemWithSolution records a problem, its symptoms and its first
// solution in a single transaction, so a failed solution write rolls back
// the problem row.
func CreateProblemWithSolution(db *gorm.DB, opts ProblemOpts) (*models.Problem, error) {
	if opts.Description == "" {
		return nil, fmt.Errorf("%w: problem description is required", ErrValidation)
	}
	if opts.Treatment == "" {
		return nil, fmt.Errorf("%w: solution treatment is required", ErrValidation)
	}
	if opts.Source == "" {
		opts.Source = models.SourceCurrentBusiness
	}

	var problem models.Problem
	err := db.Transaction(func(tx *gorm.DB) error {
		problem = models.Problem{
			EquipmentID: opts.EquipmentID,
			ReporterID:  opts.ReporterID,
			Description: opts.Description,
		}
		if err := tx.Create(&problem).Error; err != nil {
			return fmt.Errorf("create problem: %w", err)
		}

		for _, raw := range opts.Symptoms {
			if raw == "" {
				continue
			}
			sym, err := upsertSymptom(tx, raw, opts.EquipmentType)
			if err != nil {
				return err
			}
			if err := tx.Model(&problem).Association("Symptoms").Append(sym); err != nil {
				return fmt.Errorf("attach symptom: %w", err)
			}
		}

		solution := models.Solution{
			ProblemID:  problem.ID,
			Treatment:  opts.Treatment,
			Cause:      opts.Cause,
			ResolvedBy: opts.ResolvedBy,
			Source:     opts.Source,
			Cost:       opts.Cost,
			IsExternal: opts.IsExternal,
		}
		if err := tx.Create(&solution).Error; err != nil {
			return fmt.Errorf("create solution: %w", err)
		}
		problem.Solutions = []models.Solution{solution}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: create problem with solution: %w", err)
	}
	return &problem, nil
}

// upsertSymptom finds or creates the symptom keyed by
// (description, equipment type).
func upsertSymptom(tx *gorm.DB, description, equipmentType string) (*models.Symptom, error) {
	var sym models.Symptom
	err := tx.Where(models.Symptom{Description: description, EquipmentType: equipmentType}).
		FirstOrCreate(&sym).Error
	if err != nil {
		return nil, fmt.Errorf("upsert symptom %q: %w", description, err)
	}
	return &sym, nil
}
