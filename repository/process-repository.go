package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProcessType string

const (
	ProcessTypeProgression ProcessType = "PROGRESSION"
	ProcessTypePromotion   ProcessType = "PROMOTION"
)

type ProcessStatus string

const (
	StatusDraft       ProcessStatus = "DRAFT"
	StatusSubmitted   ProcessStatus = "SUBMITTED"
	StatusUnderReview ProcessStatus = "UNDER_REVIEW"
	StatusApproved    ProcessStatus = "APPROVED"
	StatusRejected    ProcessStatus = "REJECTED"
	StatusReturned    ProcessStatus = "RETURNED"
)

// OpenStatuses are the statuses that block opening another process.
var OpenStatuses = []ProcessStatus{StatusDraft, StatusSubmitted, StatusUnderReview, StatusReturned, StatusRejected}

// EditableStatuses are the statuses in which the requester may mutate
// scores, evidence and process fields.
var EditableStatuses = []ProcessStatus{StatusDraft, StatusReturned, StatusRejected}

// ReviewableStatuses are the statuses the committee may act on.
var ReviewableStatuses = []ProcessStatus{StatusSubmitted, StatusUnderReview}

func (s ProcessStatus) Editable() bool {
	for _, status := range EditableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s ProcessStatus) Reviewable() bool {
	for _, status := range ReviewableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type CareerProcess struct {
	Id               int              `gorm:"primaryKey"`
	RequesterId      int              `gorm:"not null;index"`
	TableId          int              `gorm:"not null"`
	Type             ProcessType      `gorm:"not null;type:facad.process_type"`
	Status           ProcessStatus    `gorm:"not null;type:facad.process_status;default:'DRAFT'"`
	OriginClass      string           `gorm:"not null"`
	OriginLevel      string           `gorm:"not null"`
	DestinationClass string           `gorm:"not null"`
	DestinationLevel string           `gorm:"not null"`
	IntersticeStart  time.Time        `gorm:"not null;type:date"`
	IntersticeEnd    time.Time        `gorm:"not null;type:date"`
	Campus           string           `gorm:"not null"`
	City             string           `gorm:"not null"`
	FinalPoints      *decimal.Decimal `gorm:"type:numeric(10,2);null"`
	DecisionComment  *string          `gorm:"null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`

	Requester *User         `gorm:"foreignKey:RequesterId"`
	Table     *ScoringTable `gorm:"foreignKey:TableId"`
}

type ProcessRepository struct {
	DB *gorm.DB
}

func NewProcessRepository(db *gorm.DB) *ProcessRepository {
	return &ProcessRepository{DB: db}
}

func (r *ProcessRepository) SaveProcess(process *CareerProcess) (*CareerProcess, error) {
	result := r.DB.Save(process)
	if result.Error != nil {
		return nil, result.Error
	}
	return process, nil
}

func (r *ProcessRepository) GetProcessById(processId int, preloads ...string) (*CareerProcess, error) {
	var process CareerProcess
	query := r.DB
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	result := query.First(&process, "id = ?", processId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &process, nil
}

func (r *ProcessRepository) GetProcessForRequester(processId int, requesterId int, preloads ...string) (*CareerProcess, error) {
	var process CareerProcess
	query := r.DB
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	result := query.First(&process, "id = ? AND requester_id = ?", processId, requesterId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &process, nil
}

func (r *ProcessRepository) GetProcessesForRequester(requesterId int) ([]*CareerProcess, error) {
	var processes []*CareerProcess
	result := r.DB.Order("created_at DESC").Find(&processes, "requester_id = ?", requesterId)
	if result.Error != nil {
		return nil, result.Error
	}
	return processes, nil
}

// GetOpenProcessForRequester returns the requester's process that is not
// yet closed out, if any.
func (r *ProcessRepository) GetOpenProcessForRequester(requesterId int) (*CareerProcess, error) {
	var process CareerProcess
	result := r.DB.First(&process, "requester_id = ? AND status IN ?", requesterId, OpenStatuses)
	if result.Error != nil {
		return nil, result.Error
	}
	return &process, nil
}

// GetLatestApprovedForRequester returns the approved process with the most
// recent interstice end.
func (r *ProcessRepository) GetLatestApprovedForRequester(requesterId int) (*CareerProcess, error) {
	var process CareerProcess
	result := r.DB.
		Where("requester_id = ? AND status = ?", requesterId, StatusApproved).
		Order("interstice_end DESC").
		First(&process)
	if result.Error != nil {
		return nil, result.Error
	}
	return &process, nil
}

func (r *ProcessRepository) GetApprovedForRequester(requesterId int) ([]*CareerProcess, error) {
	var processes []*CareerProcess
	result := r.DB.Find(&processes, "requester_id = ? AND status = ?", requesterId, StatusApproved)
	if result.Error != nil {
		return nil, result.Error
	}
	return processes, nil
}

// GetOverlappingProcesses returns other non-deleted processes of the same
// requester whose interstice window intersects [start, end].
func (r *ProcessRepository) GetOverlappingProcesses(requesterId int, excludeProcessId int, start time.Time, end time.Time) ([]*CareerProcess, error) {
	var processes []*CareerProcess
	result := r.DB.
		Where("requester_id = ? AND id != ?", requesterId, excludeProcessId).
		Where("interstice_start <= ? AND interstice_end >= ?", end, start).
		Find(&processes)
	if result.Error != nil {
		return nil, result.Error
	}
	return processes, nil
}

func (r *ProcessRepository) GetProcessesPendingReview() ([]*CareerProcess, error) {
	var processes []*CareerProcess
	result := r.DB.Preload("Requester").
		Order("updated_at ASC").
		Find(&processes, "status IN ?", ReviewableStatuses)
	if result.Error != nil {
		return nil, result.Error
	}
	return processes, nil
}

func (r *ProcessRepository) DeleteProcess(processId int) error {
	result := r.DB.Delete(&CareerProcess{}, "id = ?", processId)
	return result.Error
}

// LockProcess reads the process row with a FOR UPDATE lock so that
// read-validate-write sequences for one process serialize. Must be called
// inside a transaction.
func (r *ProcessRepository) LockProcess(processId int, requesterId *int) (*CareerProcess, error) {
	var process CareerProcess
	query := r.DB.Clauses(clause.Locking{Strength: "UPDATE"})
	if requesterId != nil {
		query = query.Where("requester_id = ?", *requesterId)
	}
	result := query.First(&process, "id = ?", processId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &process, nil
}
