package service

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"facad/app_error"
	"facad/repository"
	"facad/scoring"

	"gorm.io/gorm"
)

var formulaKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

type ScoringTableService struct {
	tableRepository *repository.ScoringTableRepository
}

func NewScoringTableService(db *gorm.DB) *ScoringTableService {
	return &ScoringTableService{
		tableRepository: repository.NewScoringTableRepository(db),
	}
}

// notFound maps a gorm record miss to the uniform not-found error so
// callers cannot distinguish "absent" from "owned by someone else".
func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return app_error.NotFound(entity)
	}
	return err
}

func (s *ScoringTableService) GetTables() ([]*repository.ScoringTable, error) {
	return s.tableRepository.GetTables()
}

func (s *ScoringTableService) GetTableById(tableId int) (*repository.ScoringTable, error) {
	table, err := s.tableRepository.GetTableById(tableId)
	if err != nil {
		return nil, notFound(err, "scoring table")
	}
	return table, nil
}

// GetTableTree returns the table's nodes assembled into the ordered
// forest every scoring consumer shares.
func (s *ScoringTableService) GetTableTree(tableId int) (*repository.ScoringTable, []*scoring.TreeNode, error) {
	table, err := s.GetTableById(tableId)
	if err != nil {
		return nil, nil, err
	}
	return table, scoring.BuildTree(table.Nodes), nil
}

func (s *ScoringTableService) CreateTable(table *repository.ScoringTable) (*repository.ScoringTable, error) {
	if table.Name == "" {
		return nil, app_error.Validation("table name is required", nil)
	}
	if table.StartsOn.IsZero() {
		return nil, app_error.Validation("table validity start is required", nil)
	}
	if table.EndsOn != nil && !table.EndsOn.After(table.StartsOn) {
		return nil, app_error.Validation("table validity window is empty", map[string]any{
			"starts_on": table.StartsOn.Format(time.DateOnly),
			"ends_on":   table.EndsOn.Format(time.DateOnly),
		})
	}
	if err := validateNodes(table.Nodes); err != nil {
		return nil, err
	}
	return s.tableRepository.SaveTable(table)
}

func (s *ScoringTableService) DeleteTable(tableId int) error {
	if _, err := s.GetTableById(tableId); err != nil {
		return err
	}
	return s.tableRepository.DeleteTable(tableId)
}

// validateNodes rejects the structural problems the builder would
// otherwise paper over at read time: unresolvable parent references,
// parent cycles, duplicate codes, and malformed items.
func validateNodes(nodes []*repository.ScoringNode) error {
	byId := make(map[int]*repository.ScoringNode, len(nodes))
	for _, node := range nodes {
		byId[node.Id] = node
	}
	codes := make(map[string]bool)
	for _, node := range nodes {
		if node.Name == "" {
			return app_error.Validation("node name is required", map[string]any{"node_id": node.Id})
		}
		if node.ParentId != nil && byId[*node.ParentId] == nil {
			return app_error.Validation("node references a parent outside the table", map[string]any{
				"node_id":   node.Id,
				"parent_id": *node.ParentId,
			})
		}
		if node.Code != nil {
			if codes[*node.Code] {
				return app_error.Validation("duplicate node code", map[string]any{"code": *node.Code})
			}
			codes[*node.Code] = true
		}
		if node.HasFormula && (node.FormulaExpression == nil || *node.FormulaExpression == "") {
			return app_error.Validation("node is marked as having a formula but carries no expression", map[string]any{"node_id": node.Id})
		}
		if err := validateItems(node); err != nil {
			return err
		}
	}
	return detectCycles(byId)
}

func detectCycles(byId map[int]*repository.ScoringNode) error {
	for _, node := range byId {
		seen := map[int]bool{node.Id: true}
		current := node
		for current.ParentId != nil {
			parent := byId[*current.ParentId]
			if parent == nil {
				break
			}
			if seen[parent.Id] {
				return app_error.Validation("node parent chain forms a cycle", map[string]any{"node_id": node.Id})
			}
			seen[parent.Id] = true
			current = parent
		}
	}
	return nil
}

func validateItems(node *repository.ScoringNode) error {
	keys := make(map[string]bool)
	for _, item := range node.Items {
		if item.Description == "" {
			return app_error.Validation("item description is required", map[string]any{"item_id": item.Id})
		}
		if item.Points.IsNegative() {
			return app_error.Validation("item points must not be negative", map[string]any{"item_id": item.Id})
		}
		if item.HasMaxPoints && item.MaxPoints == nil {
			return app_error.Validation("item with a point cap must declare max points", map[string]any{"item_id": item.Id})
		}
		if item.FormulaKey != nil {
			if !formulaKeyPattern.MatchString(*item.FormulaKey) {
				return app_error.Validation(fmt.Sprintf("formula key %q is not a valid variable name", *item.FormulaKey), map[string]any{"item_id": item.Id})
			}
			if keys[*item.FormulaKey] {
				return app_error.Validation("duplicate formula key within node", map[string]any{
					"node_id":     node.Id,
					"formula_key": *item.FormulaKey,
				})
			}
			keys[*item.FormulaKey] = true
		}
	}
	return nil
}
