package service

import (
	"facad/app_error"
	"facad/metrics"
	"facad/repository"
	"facad/scoring"

	"gorm.io/gorm"
)

// Decision is the committee's finalization verdict.
type Decision = repository.ProcessStatus

var allowedDecisions = []Decision{
	repository.StatusApproved,
	repository.StatusRejected,
	repository.StatusReturned,
}

type EvaluationService struct {
	DB                  *gorm.DB
	processRepository   *repository.ProcessRepository
	scoreService        *ScoreService
	notificationService *NotificationService
}

func NewEvaluationService(db *gorm.DB) *EvaluationService {
	return &EvaluationService{
		DB:                  db,
		processRepository:   repository.NewProcessRepository(db),
		scoreService:        NewScoreService(db),
		notificationService: NewNotificationService(),
	}
}

func (s *EvaluationService) GetProcessForReview(processId int) (*repository.CareerProcess, error) {
	process, err := s.processRepository.GetProcessById(processId, "Requester", "Table")
	if err != nil {
		return nil, notFound(err, "process")
	}
	return process, nil
}

// FinalizationResult carries the decided process and the committee-track
// aggregation that produced its final points.
type FinalizationResult struct {
	Process   *repository.CareerProcess
	Committee *scoring.Result
}

// FinalizeProcess records the committee decision. The committee-track
// totals are recomputed one last time and persisted atomically with the
// status transition, so finalPoints always reflects the decided snapshot.
func (s *EvaluationService) FinalizeProcess(processId int, decision Decision, comment *string) (*FinalizationResult, error) {
	valid := false
	for _, allowed := range allowedDecisions {
		if decision == allowed {
			valid = true
		}
	}
	if !valid {
		return nil, app_error.Validation("decision must be approved, rejected or returned", map[string]any{
			"decision": decision,
		})
	}

	result := &FinalizationResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		processRepository := repository.NewProcessRepository(tx)
		process, err := processRepository.LockProcess(processId, nil)
		if err != nil {
			return notFound(err, "process")
		}
		if !process.Status.Reviewable() {
			return app_error.BusinessRule("only submitted processes can be finalized", map[string]any{
				"process_id": process.Id,
				"status":     process.Status,
			})
		}

		_, committee, err := s.scoreService.RecomputeNodeScores(tx, process)
		if err != nil {
			return err
		}

		finalPoints := committee.GrandTotal
		process.FinalPoints = &finalPoints
		process.DecisionComment = comment
		process.Status = decision
		saved, err := processRepository.SaveProcess(process)
		if err != nil {
			return err
		}
		result.Process = saved
		result.Committee = committee
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ProcessesFinalizedCounter.WithLabelValues(string(decision)).Inc()
	s.notificationService.PublishProcessEvent(ProcessEventFinalized, result.Process)
	return result, nil
}
