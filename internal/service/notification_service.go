package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/accessdesk/access-api/internal/models"
	"github.com/accessdesk/access-api/pkg/jobs"
)

// Notification event types dispatched to the background pool.
const (
	NotifyRequestSubmitted  = "request.submitted"
	NotifyRequestApproved   = "request.approved"
	NotifyRequestDenied     = "request.denied"
	NotifyApproverNudged    = "request.nudged"
	NotifyDraftSaved        = "draft.saved"
	NotifyPrereqsIncomplete = "draft.prerequisites_incomplete"
)

// NotificationEvent is the queue payload for a single notification.
type NotificationEvent struct {
	Type            string
	RequestID       string
	RequesterEID    string
	CurrentApprover string
	Status          models.RequestStatus
}

// NotificationService fans request lifecycle events out to a background
// queue. Delivery is best-effort: a full queue drops the event with a log
// line rather than blocking the request path.
type NotificationService struct {
	pool   *jobs.Pool
	logger *zap.Logger
}

// NewNotificationService builds the service and its backing worker pool.
func NewNotificationService(logger *zap.Logger, workers, retries int) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{logger: logger}
	s.pool = jobs.NewPool("notifications", s.deliver, jobs.PoolConfig{
		Workers:    workers,
		MaxRetries: retries,
		Logger:     logger,
	})
	return s
}

// Start begins pool consumption.
func (s *NotificationService) Start(ctx context.Context) {
	s.pool.Start(ctx)
}

// Stop drains workers.
func (s *NotificationService) Stop() {
	s.pool.Stop()
}

// RequestSubmitted notifies the first approver of each new request.
func (s *NotificationService) RequestSubmitted(requests []models.AccessRequest) {
	for _, r := range requests {
		s.enqueue(NotificationEvent{
			Type:            NotifyRequestSubmitted,
			RequestID:       r.ID,
			RequesterEID:    r.RequesterEID,
			CurrentApprover: r.CurrentApprover(),
			Status:          r.Status,
		})
	}
}

// RequestDecided notifies the requester of a final decision.
func (s *NotificationService) RequestDecided(request models.AccessRequest, approved bool) {
	eventType := NotifyRequestDenied
	if approved {
		eventType = NotifyRequestApproved
	}
	s.enqueue(NotificationEvent{
		Type:         eventType,
		RequestID:    request.ID,
		RequesterEID: request.RequesterEID,
		Status:       request.Status,
	})
}

// DraftSaved surfaces a persisted wizard autosave to the owner.
func (s *NotificationService) DraftSaved(draft models.DraftRequest) {
	s.enqueue(NotificationEvent{
		Type:         NotifyDraftSaved,
		RequesterEID: draft.OwnerEID,
	})
}

// PrereqsIncomplete tells the owner a submission bounced off the
// prerequisites check.
func (s *NotificationService) PrereqsIncomplete(draft models.DraftRequest) {
	s.enqueue(NotificationEvent{
		Type:         NotifyPrereqsIncomplete,
		RequesterEID: draft.OwnerEID,
	})
}

// ApproverNudged reminds the current approver about a stalled request.
func (s *NotificationService) ApproverNudged(request models.AccessRequest) {
	s.enqueue(NotificationEvent{
		Type:            NotifyApproverNudged,
		RequestID:       request.ID,
		RequesterEID:    request.RequesterEID,
		CurrentApprover: request.CurrentApprover(),
		Status:          request.Status,
	})
}

func (s *NotificationService) enqueue(event NotificationEvent) {
	err := s.pool.Enqueue(jobs.Task{
		ID:      uuid.NewString(),
		Kind:    event.Type,
		Payload: event,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("type", event.Type),
			zap.String("request_id", event.RequestID),
			zap.Error(err))
	}
}

// deliver is the pool handler. Delivery currently writes a structured log
// line per event; the mail/chat integration hangs off this single spot.
func (s *NotificationService) deliver(ctx context.Context, task jobs.Task) error {
	event, ok := task.Payload.(NotificationEvent)
	if !ok {
		s.logger.Warn("dropping notification with unexpected payload", zap.String("task_id", task.ID))
		return nil
	}
	s.logger.Info("notification dispatched",
		zap.String("type", event.Type),
		zap.String("request_id", event.RequestID),
		zap.String("requester", event.RequesterEID),
		zap.String("approver", event.CurrentApprover),
		zap.String("status", string(event.Status)))
	return nil
}
