package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessScore is the ledger row for one (process, item) pair. The
// evaluator columns form the sparse committee track.
type ProcessScore struct {
	Id                     int              `gorm:"primaryKey"`
	ProcessId              int              `gorm:"not null;uniqueIndex:idx_score_process_item"`
	ItemId                 int              `gorm:"not null;uniqueIndex:idx_score_process_item"`
	Quantity               decimal.Decimal  `gorm:"type:numeric(10,2);not null;default:0"`
	AwardedPoints          decimal.Decimal  `gorm:"type:numeric(10,2);not null;default:0"`
	EvaluatorAwardedPoints *decimal.Decimal `gorm:"type:numeric(10,2);null"`
	EvaluatorComment       *string          `gorm:"null"`
	EvidenceFileId         *uuid.UUID       `gorm:"type:uuid;null"`
	CreatedAt              time.Time
	UpdatedAt              time.Time

	Item         *ScoringItem  `gorm:"foreignKey:ItemId"`
	EvidenceFile *EvidenceFile `gorm:"foreignKey:EvidenceFileId"`
}

// ProcessNodeScore caches the aggregated totals per (process, node).
// Rows are recomputed wholesale, never hand-edited.
type ProcessNodeScore struct {
	Id                   int              `gorm:"primaryKey"`
	ProcessId            int              `gorm:"not null;uniqueIndex:idx_node_score_process_node"`
	NodeId               int              `gorm:"not null;uniqueIndex:idx_node_score_process_node"`
	TotalPoints          decimal.Decimal  `gorm:"type:numeric(10,2);not null;default:0"`
	EvaluatorTotalPoints *decimal.Decimal `gorm:"type:numeric(10,2);null"`
	UpdatedAt            time.Time
}

type ProcessScoreRepository struct {
	DB *gorm.DB
}

func NewProcessScoreRepository(db *gorm.DB) *ProcessScoreRepository {
	return &ProcessScoreRepository{DB: db}
}

func (r *ProcessScoreRepository) GetScoresForProcess(processId int, preloads ...string) ([]*ProcessScore, error) {
	var scores []*ProcessScore
	query := r.DB
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	result := query.Find(&scores, "process_id = ?", processId)
	if result.Error != nil {
		return nil, result.Error
	}
	return scores, nil
}

func (r *ProcessScoreRepository) GetScore(processId int, itemId int) (*ProcessScore, error) {
	var score ProcessScore
	result := r.DB.First(&score, "process_id = ? AND item_id = ?", processId, itemId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &score, nil
}

// UpsertScore writes the ledger row keyed by (process, item). A second
// write for the same pair updates in place, it never duplicates.
func (r *ProcessScoreRepository) UpsertScore(score *ProcessScore) (*ProcessScore, error) {
	result := r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "process_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quantity", "awarded_points", "evaluator_awarded_points", "evaluator_comment", "evidence_file_id", "updated_at",
		}),
	}).Create(score)
	if result.Error != nil {
		return nil, result.Error
	}
	return score, nil
}

func (r *ProcessScoreRepository) GetNodeScoresForProcess(processId int) ([]*ProcessNodeScore, error) {
	var scores []*ProcessNodeScore
	result := r.DB.Find(&scores, "process_id = ?", processId)
	if result.Error != nil {
		return nil, result.Error
	}
	return scores, nil
}

// ReplaceNodeScores swaps the cached node totals of a process for a
// freshly aggregated set.
func (r *ProcessScoreRepository) ReplaceNodeScores(processId int, scores []*ProcessNodeScore) error {
	result := r.DB.Where("process_id = ?", processId).Delete(&ProcessNodeScore{})
	if result.Error != nil {
		return result.Error
	}
	if len(scores) == 0 {
		return nil
	}
	return r.DB.Create(scores).Error
}
