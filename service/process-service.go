package service

import (
	"errors"
	"time"

	"facad/app_error"
	"facad/metrics"
	"facad/repository"
	"facad/scoring"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MinimumSubmissionPoints is the self-reported grand total a request
// needs before it may be submitted for review.
var MinimumSubmissionPoints = decimal.NewFromInt(120)

// Movement is one allowed (origin -> destination) class/level step.
type Movement struct {
	OriginClass      string
	OriginLevel      string
	DestinationClass string
	DestinationLevel string
}

// allowedMovements is the fixed allow-list of career steps per process
// type: progressions move between levels of one class, promotions cross
// into the first level of the next class.
var allowedMovements = map[repository.ProcessType][]Movement{
	repository.ProcessTypeProgression: {
		{"D-I", "1", "D-I", "2"},
		{"D-II", "1", "D-II", "2"},
		{"D-III", "1", "D-III", "2"},
		{"D-III", "2", "D-III", "3"},
		{"D-III", "3", "D-III", "4"},
		{"D-IV", "1", "D-IV", "2"},
		{"D-IV", "2", "D-IV", "3"},
		{"D-IV", "3", "D-IV", "4"},
	},
	repository.ProcessTypePromotion: {
		{"D-I", "2", "D-II", "1"},
		{"D-II", "2", "D-III", "1"},
		{"D-III", "4", "D-IV", "1"},
		{"D-IV", "4", "Titular", "1"},
	},
}

func movementOf(process *repository.CareerProcess) Movement {
	return Movement{
		OriginClass:      process.OriginClass,
		OriginLevel:      process.OriginLevel,
		DestinationClass: process.DestinationClass,
		DestinationLevel: process.DestinationLevel,
	}
}

type ProcessService struct {
	DB                  *gorm.DB
	processRepository   *repository.ProcessRepository
	tableRepository     *repository.ScoringTableRepository
	scoreService        *ScoreService
	notificationService *NotificationService
}

func NewProcessService(db *gorm.DB) *ProcessService {
	return &ProcessService{
		DB:                  db,
		processRepository:   repository.NewProcessRepository(db),
		tableRepository:     repository.NewScoringTableRepository(db),
		scoreService:        NewScoreService(db),
		notificationService: NewNotificationService(),
	}
}

func (s *ProcessService) GetProcessForRequester(processId int, requesterId int) (*repository.CareerProcess, error) {
	process, err := s.processRepository.GetProcessForRequester(processId, requesterId, "Table")
	if err != nil {
		return nil, notFound(err, "process")
	}
	return process, nil
}

func (s *ProcessService) GetProcessesForRequester(requesterId int) ([]*repository.CareerProcess, error) {
	return s.processRepository.GetProcessesForRequester(requesterId)
}

func (s *ProcessService) GetProcessesPendingReview() ([]*repository.CareerProcess, error) {
	return s.processRepository.GetProcessesPendingReview()
}

// OpenProcess creates a new request in DRAFT after checking every
// opening guard.
func (s *ProcessService) OpenProcess(requesterId int, process *repository.CareerProcess) (*repository.CareerProcess, error) {
	if err := validateInterstice(process); err != nil {
		return nil, err
	}
	if err := s.checkMovement(process); err != nil {
		return nil, err
	}

	open, err := s.processRepository.GetOpenProcessForRequester(requesterId)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if open != nil {
		return nil, app_error.BusinessRule("requester already has an open process", map[string]any{
			"process_id": open.Id,
			"status":     open.Status,
		})
	}

	if err := s.checkChronology(requesterId, process); err != nil {
		return nil, err
	}
	if err := s.checkApprovedDuplicates(requesterId, process); err != nil {
		return nil, err
	}

	if process.TableId == 0 {
		table, err := s.tableRepository.GetTableValidAt(time.Now())
		if err != nil {
			return nil, notFound(err, "scoring table")
		}
		process.TableId = table.Id
	} else if _, err := s.tableRepository.GetTableById(process.TableId); err != nil {
		return nil, notFound(err, "scoring table")
	}

	process.RequesterId = requesterId
	process.Status = repository.StatusDraft
	process.FinalPoints = nil
	saved, err := s.processRepository.SaveProcess(process)
	if err != nil {
		return nil, err
	}
	metrics.ProcessesOpenedCounter.Inc()
	s.notificationService.PublishProcessEvent(ProcessEventOpened, saved)
	return saved, nil
}

// UpdateProcess mutates the request fields of an editable process. The
// interstice overlap guard only applies here, not at open time.
func (s *ProcessService) UpdateProcess(requesterId int, processId int, update *repository.CareerProcess) (*repository.CareerProcess, error) {
	var saved *repository.CareerProcess
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		processRepository := repository.NewProcessRepository(tx)
		process, err := processRepository.LockProcess(processId, &requesterId)
		if err != nil {
			return notFound(err, "process")
		}
		if !process.Status.Editable() {
			return app_error.BusinessRule("process is not editable in its current status", map[string]any{
				"process_id": process.Id,
				"status":     process.Status,
			})
		}

		process.Type = update.Type
		process.OriginClass = update.OriginClass
		process.OriginLevel = update.OriginLevel
		process.DestinationClass = update.DestinationClass
		process.DestinationLevel = update.DestinationLevel
		process.IntersticeStart = update.IntersticeStart
		process.IntersticeEnd = update.IntersticeEnd
		process.Campus = update.Campus
		process.City = update.City

		if err := validateInterstice(process); err != nil {
			return err
		}
		if err := s.checkMovement(process); err != nil {
			return err
		}
		if err := s.checkChronology(requesterId, process); err != nil {
			return err
		}
		if err := s.checkApprovedDuplicates(requesterId, process); err != nil {
			return err
		}

		overlapping, err := processRepository.GetOverlappingProcesses(requesterId, process.Id, process.IntersticeStart, process.IntersticeEnd)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return app_error.BusinessRule("interstice window overlaps another process", map[string]any{
				"process_id":  overlapping[0].Id,
				"other_start": overlapping[0].IntersticeStart.Format(time.DateOnly),
				"other_end":   overlapping[0].IntersticeEnd.Format(time.DateOnly),
			})
		}

		saved, err = processRepository.SaveProcess(process)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SubmissionResult carries the submitted process together with the total
// that passed the gate and any formula fallbacks hit while computing it.
type SubmissionResult struct {
	Process     *repository.CareerProcess
	TotalPoints decimal.Decimal
	Fallbacks   []*scoring.FormulaFallback
}

// SubmitProcess moves an editable request into review. The eligibility
// total and the movement/interstice rules are evaluated against the same
// snapshot the status change commits on.
func (s *ProcessService) SubmitProcess(requesterId int, processId int) (*SubmissionResult, error) {
	result := &SubmissionResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		processRepository := repository.NewProcessRepository(tx)
		process, err := processRepository.LockProcess(processId, &requesterId)
		if err != nil {
			return notFound(err, "process")
		}
		if process.Status != repository.StatusDraft && process.Status != repository.StatusReturned {
			return app_error.BusinessRule("process can only be submitted from draft or returned", map[string]any{
				"process_id": process.Id,
				"status":     process.Status,
			})
		}

		// rules may have been satisfied at edit time and broken since
		if err := validateInterstice(process); err != nil {
			return err
		}
		if err := s.checkMovement(process); err != nil {
			return err
		}
		if err := s.checkChronologyOn(tx, requesterId, process); err != nil {
			return err
		}
		if err := s.checkApprovedDuplicatesOn(tx, requesterId, process); err != nil {
			return err
		}

		self, _, err := s.scoreService.RecomputeNodeScores(tx, process)
		if err != nil {
			return err
		}
		if self.GrandTotal.LessThan(MinimumSubmissionPoints) {
			return app_error.BusinessRule("request does not reach the minimum point total", map[string]any{
				"total_points":   self.GrandTotal.StringFixed(2),
				"minimum_points": MinimumSubmissionPoints.StringFixed(2),
			})
		}

		process.Status = repository.StatusSubmitted
		saved, err := processRepository.SaveProcess(process)
		if err != nil {
			return err
		}
		result.Process = saved
		result.TotalPoints = self.GrandTotal
		result.Fallbacks = self.Fallbacks
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ProcessesSubmittedCounter.Inc()
	s.notificationService.PublishProcessEvent(ProcessEventSubmitted, result.Process)
	return result, nil
}

// DeleteProcess soft-deletes a request that never entered review or was
// rejected.
func (s *ProcessService) DeleteProcess(requesterId int, processId int) error {
	process, err := s.processRepository.GetProcessForRequester(processId, requesterId)
	if err != nil {
		return notFound(err, "process")
	}
	if process.Status != repository.StatusDraft && process.Status != repository.StatusRejected {
		return app_error.BusinessRule("process can only be deleted while draft or rejected", map[string]any{
			"process_id": process.Id,
			"status":     process.Status,
		})
	}
	return s.processRepository.DeleteProcess(process.Id)
}

func validateInterstice(process *repository.CareerProcess) error {
	if process.IntersticeStart.IsZero() || process.IntersticeEnd.IsZero() {
		return app_error.Validation("interstice start and end are required", nil)
	}
	if !process.IntersticeEnd.After(process.IntersticeStart) {
		return app_error.Validation("interstice end must be after its start", map[string]any{
			"interstice_start": process.IntersticeStart.Format(time.DateOnly),
			"interstice_end":   process.IntersticeEnd.Format(time.DateOnly),
		})
	}
	return nil
}

func (s *ProcessService) checkMovement(process *repository.CareerProcess) error {
	movements, ok := allowedMovements[process.Type]
	if !ok {
		return app_error.Validation("unknown process type", map[string]any{"type": process.Type})
	}
	movement := movementOf(process)
	for _, allowed := range movements {
		if movement == allowed {
			return nil
		}
	}
	return app_error.BusinessRule("movement is not allowed for this process type", map[string]any{
		"type":        process.Type,
		"origin":      movement.OriginClass + " " + movement.OriginLevel,
		"destination": movement.DestinationClass + " " + movement.DestinationLevel,
	})
}

func (s *ProcessService) checkChronology(requesterId int, process *repository.CareerProcess) error {
	return s.checkChronologyOn(s.DB, requesterId, process)
}

// checkChronologyOn rejects an interstice that does not start strictly
// after the end of the requester's most recent approved process.
func (s *ProcessService) checkChronologyOn(db *gorm.DB, requesterId int, process *repository.CareerProcess) error {
	latest, err := repository.NewProcessRepository(db).GetLatestApprovedForRequester(requesterId)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !process.IntersticeStart.After(latest.IntersticeEnd) {
		return app_error.BusinessRule("interstice must start after the last approved process ended", map[string]any{
			"approved_process_id": latest.Id,
			"approved_end":        latest.IntersticeEnd.Format(time.DateOnly),
			"interstice_start":    process.IntersticeStart.Format(time.DateOnly),
		})
	}
	return nil
}

func (s *ProcessService) checkApprovedDuplicates(requesterId int, process *repository.CareerProcess) error {
	return s.checkApprovedDuplicatesOn(s.DB, requesterId, process)
}

// checkApprovedDuplicatesOn rejects a request whose interstice window or
// movement was already granted by an approved process.
func (s *ProcessService) checkApprovedDuplicatesOn(db *gorm.DB, requesterId int, process *repository.CareerProcess) error {
	approved, err := repository.NewProcessRepository(db).GetApprovedForRequester(requesterId)
	if err != nil {
		return err
	}
	movement := movementOf(process)
	for _, other := range approved {
		if other.Id == process.Id {
			continue
		}
		if other.IntersticeStart.Equal(process.IntersticeStart) && other.IntersticeEnd.Equal(process.IntersticeEnd) {
			return app_error.BusinessRule("an approved process already covers this interstice", map[string]any{
				"approved_process_id": other.Id,
			})
		}
		if other.Type == process.Type && movementOf(other) == movement {
			return app_error.BusinessRule("this movement was already granted", map[string]any{
				"approved_process_id": other.Id,
			})
		}
	}
	return nil
}
