package service

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"facad/config"
	"facad/repository"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type ProcessEventType string

const (
	ProcessEventOpened    ProcessEventType = "PROCESS_OPENED"
	ProcessEventSubmitted ProcessEventType = "PROCESS_SUBMITTED"
	ProcessEventFinalized ProcessEventType = "PROCESS_FINALIZED"
)

type ProcessEvent struct {
	Type        ProcessEventType         `json:"type"`
	ProcessId   int                      `json:"process_id"`
	RequesterId int                      `json:"requester_id"`
	Status      repository.ProcessStatus `json:"status"`
	FinalPoints *decimal.Decimal         `json:"final_points,omitempty"`
	Timestamp   time.Time                `json:"timestamp"`
}

// NotificationService publishes process lifecycle events. Publishing is
// best-effort: a missing or unreachable broker is logged, never surfaced
// to the requester.
type NotificationService struct {
	writer     *kafka.Writer
	writerOnce sync.Once
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (s *NotificationService) PublishProcessEvent(eventType ProcessEventType, process *repository.CareerProcess) {
	s.writerOnce.Do(func() {
		writer, err := config.GetProcessEventWriter()
		if err != nil {
			log.Printf("process events disabled: %v", err)
			return
		}
		s.writer = writer
	})
	if s.writer == nil {
		return
	}

	event := ProcessEvent{
		Type:        eventType,
		ProcessId:   process.Id,
		RequesterId: process.RequesterId,
		Status:      process.Status,
		FinalPoints: process.FinalPoints,
		Timestamp:   time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("could not marshal process event: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(process.Id)),
		Value: payload,
	})
	if err != nil {
		log.Printf("could not publish process event: %v", err)
	}
}
