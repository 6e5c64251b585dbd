package service

import (
	"errors"

	"facad/app_error"
	"facad/metrics"
	"facad/repository"
	"facad/scoring"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ScoreWrite is one ledger write. Quantity drives quantity-multiplied
// items, AwardedPoints drives capped items; the entry mode of the item
// decides which one is required.
type ScoreWrite struct {
	Quantity      *decimal.Decimal
	AwardedPoints *decimal.Decimal
}

// ScoreReview is the committee's override for one ledger row.
type ScoreReview struct {
	AwardedPoints decimal.Decimal
	Comment       *string
}

type ScoreService struct {
	DB              *gorm.DB
	scoreRepository *repository.ProcessScoreRepository
}

func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{
		DB:              db,
		scoreRepository: repository.NewProcessScoreRepository(db),
	}
}

func (s *ScoreService) GetScoresForProcess(processId int) ([]*repository.ProcessScore, error) {
	return s.scoreRepository.GetScoresForProcess(processId, "Item", "EvidenceFile")
}

func (s *ScoreService) GetNodeScoresForProcess(processId int) ([]*repository.ProcessNodeScore, error) {
	return s.scoreRepository.GetNodeScoresForProcess(processId)
}

// WriteScore upserts the requester's ledger row for one item and
// recomputes the cached node totals inside the same transaction.
func (s *ScoreService) WriteScore(requesterId int, processId int, itemId int, write *ScoreWrite) (*repository.ProcessScore, error) {
	var saved *repository.ProcessScore
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		processRepository := repository.NewProcessRepository(tx)
		process, err := processRepository.LockProcess(processId, &requesterId)
		if err != nil {
			return notFound(err, "process")
		}
		if !process.Status.Editable() {
			return app_error.BusinessRule("scores can only be written while the process is editable", map[string]any{
				"process_id": process.Id,
				"status":     process.Status,
			})
		}

		item, err := s.itemForProcess(tx, process, itemId)
		if err != nil {
			return err
		}

		scoreRepository := repository.NewProcessScoreRepository(tx)
		score, err := scoreRepository.GetScore(process.Id, item.Id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			score = &repository.ProcessScore{ProcessId: process.Id, ItemId: item.Id}
		} else if err != nil {
			return err
		}

		if err := applyWrite(score, item, write); err != nil {
			return err
		}
		if score.AwardedPoints.IsPositive() && score.EvidenceFileId == nil {
			return app_error.BusinessRule("points above zero require an evidence attachment", map[string]any{
				"item_id": item.Id,
			})
		}

		saved, err = scoreRepository.UpsertScore(score)
		if err != nil {
			return err
		}
		_, _, err = s.RecomputeNodeScores(tx, process)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.ScoreWriteCounter.Inc()
	return saved, nil
}

// applyWrite validates the write against the item's entry mode and sets
// quantity and awarded points on the row.
func applyWrite(score *repository.ProcessScore, item *repository.ScoringItem, write *ScoreWrite) error {
	if item.HasMaxPoints {
		if write.AwardedPoints == nil {
			return app_error.Validation("capped items require awarded points", map[string]any{"item_id": item.Id})
		}
		if write.AwardedPoints.IsNegative() {
			return app_error.Validation("awarded points must not be negative", map[string]any{"item_id": item.Id})
		}
		ceiling := item.Ceiling()
		if write.AwardedPoints.GreaterThan(ceiling) {
			return app_error.Validation("awarded points exceed the item's maximum", map[string]any{
				"item_id":        item.Id,
				"awarded_points": write.AwardedPoints.StringFixed(2),
				"max_points":     ceiling.StringFixed(2),
			})
		}
		score.AwardedPoints = write.AwardedPoints.Round(2)
		if write.Quantity != nil {
			score.Quantity = write.Quantity.Round(2)
		}
		return nil
	}

	if write.Quantity == nil {
		return app_error.Validation("quantity items require a quantity", map[string]any{"item_id": item.Id})
	}
	if write.Quantity.IsNegative() {
		return app_error.Validation("quantity must not be negative", map[string]any{"item_id": item.Id})
	}
	score.Quantity = write.Quantity.Round(2)
	score.AwardedPoints = write.Quantity.Mul(item.Points).Round(2)
	return nil
}

// AttachEvidence links an evidence file the requester owns to the ledger
// row of one item, creating the row if it does not exist yet.
func (s *ScoreService) AttachEvidence(requesterId int, processId int, itemId int, fileId uuid.UUID) (*repository.ProcessScore, error) {
	var saved *repository.ProcessScore
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		processRepository := repository.NewProcessRepository(tx)
		process, err := processRepository.LockProcess(processId, &requesterId)
		if err != nil {
			return notFound(err, "process")
		}
		if !process.Status.Editable() {
			return app_error.BusinessRule("evidence can only be attached while the process is editable", map[string]any{
				"process_id": process.Id,
				"status":     process.Status,
			})
		}

		item, err := s.itemForProcess(tx, process, itemId)
		if err != nil {
			return err
		}
		file, err := repository.NewEvidenceRepository(tx).GetFileForOwner(fileId, requesterId)
		if err != nil {
			return notFound(err, "evidence file")
		}

		scoreRepository := repository.NewProcessScoreRepository(tx)
		score, err := scoreRepository.GetScore(process.Id, item.Id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			score = &repository.ProcessScore{ProcessId: process.Id, ItemId: item.Id}
		} else if err != nil {
			return err
		}
		score.EvidenceFileId = &file.Id

		saved, err = scoreRepository.UpsertScore(score)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ReviewScore writes the committee override for one ledger row. The first
// override moves a submitted process into review.
func (s *ScoreService) ReviewScore(processId int, itemId int, review *ScoreReview) (*repository.ProcessScore, error) {
	var saved *repository.ProcessScore
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		processRepository := repository.NewProcessRepository(tx)
		process, err := processRepository.LockProcess(processId, nil)
		if err != nil {
			return notFound(err, "process")
		}
		if !process.Status.Reviewable() {
			return app_error.BusinessRule("process is not under review", map[string]any{
				"process_id": process.Id,
				"status":     process.Status,
			})
		}

		item, err := s.itemForProcess(tx, process, itemId)
		if err != nil {
			return err
		}
		if review.AwardedPoints.IsNegative() {
			return app_error.Validation("awarded points must not be negative", map[string]any{"item_id": item.Id})
		}
		if item.HasMaxPoints && review.AwardedPoints.GreaterThan(item.Ceiling()) {
			return app_error.Validation("awarded points exceed the item's maximum", map[string]any{
				"item_id":        item.Id,
				"awarded_points": review.AwardedPoints.StringFixed(2),
				"max_points":     item.Ceiling().StringFixed(2),
			})
		}

		scoreRepository := repository.NewProcessScoreRepository(tx)
		score, err := scoreRepository.GetScore(process.Id, item.Id)
		if err != nil {
			return notFound(err, "score")
		}
		points := review.AwardedPoints.Round(2)
		score.EvaluatorAwardedPoints = &points
		score.EvaluatorComment = review.Comment

		saved, err = scoreRepository.UpsertScore(score)
		if err != nil {
			return err
		}
		if _, _, err = s.RecomputeNodeScores(tx, process); err != nil {
			return err
		}

		if process.Status == repository.StatusSubmitted {
			process.Status = repository.StatusUnderReview
			_, err = processRepository.SaveProcess(process)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// RecomputeNodeScores rebuilds the cached per-node totals of a process
// from its ledger rows, for both tracks, and returns both aggregation
// results. Always a full recomputation, never an incremental patch.
func (s *ScoreService) RecomputeNodeScores(db *gorm.DB, process *repository.CareerProcess) (*scoring.Result, *scoring.Result, error) {
	nodes, err := repository.NewScoringTableRepository(db).GetNodesForTable(process.TableId)
	if err != nil {
		return nil, nil, err
	}
	scoreRepository := repository.NewProcessScoreRepository(db)
	scores, err := scoreRepository.GetScoresForProcess(process.Id)
	if err != nil {
		return nil, nil, err
	}

	tree := scoring.BuildTree(nodes)
	self, err := scoring.Aggregate(tree, scores, scoring.TrackSelf)
	if err != nil {
		return nil, nil, err
	}
	committee, err := scoring.Aggregate(tree, scores, scoring.TrackCommittee)
	if err != nil {
		return nil, nil, err
	}

	rows := scoring.NodeScoreRows(process.Id, self, committee)
	if err := scoreRepository.ReplaceNodeScores(process.Id, rows); err != nil {
		return nil, nil, err
	}
	return self, committee, nil
}

// itemForProcess resolves an item and checks it is usable by the given
// process: same table, active node, not soft-deleted.
func (s *ScoreService) itemForProcess(db *gorm.DB, process *repository.CareerProcess, itemId int) (*repository.ScoringItem, error) {
	item, err := repository.NewScoringTableRepository(db).GetItemById(itemId)
	if err != nil {
		return nil, notFound(err, "scoring item")
	}
	if item.Node == nil || item.Node.TableId != process.TableId {
		return nil, app_error.BusinessRule("item does not belong to the process's scoring table", map[string]any{
			"item_id":  item.Id,
			"table_id": process.TableId,
		})
	}
	if !item.Node.Active {
		return nil, app_error.BusinessRule("item belongs to an inactive node", map[string]any{"item_id": item.Id})
	}
	return item, nil
}
