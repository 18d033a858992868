package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/accessdesk/access-api/internal/dto"
	"github.com/accessdesk/access-api/internal/models"
	"github.com/accessdesk/access-api/internal/rules"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
)

type requestRepository interface {
	FindByID(ctx context.Context, id string) (*models.AccessRequest, error)
	ListByRequester(ctx context.Context, eid string, status *models.RequestStatus, page, pageSize int) ([]models.AccessRequest, int, error)
	ListPendingForApprover(ctx context.Context, approverRole string, page, pageSize int) ([]models.AccessRequest, int, error)
	UpdateDecision(ctx context.Context, req *models.AccessRequest) error
	RecordNudge(ctx context.Context, id string, nudgedAt time.Time) error
}

type nudgeLimiter interface {
	Acquire(ctx context.Context, requestID string, cooldown time.Duration) (bool, error)
	Remaining(ctx context.Context, requestID string) (time.Duration, error)
}

type requestAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type decisionNotifier interface {
	RequestDecided(request models.AccessRequest, approved bool)
	ApproverNudged(request models.AccessRequest)
}

// RequestService handles submitted requests: the requester's own listing and
// the approver queue with approve, deny and nudge actions.
type RequestService struct {
	repo      requestRepository
	nudges    nudgeLimiter
	audit     requestAuditRepository
	notifier  decisionNotifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cooldown  time.Duration
	now       func() time.Time
}

// NewRequestService constructs the service.
func NewRequestService(repo requestRepository, nudges nudgeLimiter, audit requestAuditRepository, notifier decisionNotifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cooldown time.Duration) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}
	return &RequestService{
		repo:      repo,
		nudges:    nudges,
		audit:     audit,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cooldown:  cooldown,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListMine returns the requester's own submissions.
func (s *RequestService) ListMine(ctx context.Context, eid string, query dto.ListRequestsQuery) ([]dto.RequestItem, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request query")
	}

	var status *models.RequestStatus
	if query.Status != "" {
		st := models.RequestStatus(query.Status)
		status = &st
	}

	start := time.Now()
	requests, total, err := s.repo.ListByRequester(ctx, eid, status, query.Page, query.PageSize)
	s.metrics.ObserveDBQuery("requests_list_mine", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return decorate(requests), pagination(query.Page, query.PageSize, total), nil
}

// ListPending returns the approval queue for one approver role, oldest first.
func (s *RequestService) ListPending(ctx context.Context, approverRole string, query dto.ListRequestsQuery) ([]dto.RequestItem, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request query")
	}

	start := time.Now()
	requests, total, err := s.repo.ListPendingForApprover(ctx, approverRole, query.Page, query.PageSize)
	s.metrics.ObserveDBQuery("requests_list_pending", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	return decorate(requests), pagination(query.Page, query.PageSize, total), nil
}

// Get fetches one request.
func (s *RequestService) Get(ctx context.Context, id string) (*dto.RequestItem, error) {
	request, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	item := decorateOne(*request)
	return &item, nil
}

// Approve advances the request one slot along its approver path; clearing the
// final slot approves the request outright.
func (s *RequestService) Approve(ctx context.Context, action models.ApproverAction) (*dto.RequestItem, error) {
	request, err := s.find(ctx, action.RequestID)
	if err != nil {
		return nil, err
	}
	if !request.Status.Pending() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request is already decided")
	}

	request.CurrentApproverIndex++
	if request.CurrentApproverIndex >= len(request.ApproverPath) {
		request.Status = models.StatusApproved
	} else {
		request.Status = statusForApprover(request.ApproverPath[request.CurrentApproverIndex])
	}

	if err := s.repo.UpdateDecision(ctx, request); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record approval")
	}

	s.auditDecision(ctx, action, models.AuditActionRequestApprove)
	if s.notifier != nil && request.Status == models.StatusApproved {
		s.notifier.RequestDecided(*request, true)
	}

	item := decorateOne(*request)
	return &item, nil
}

// Deny finalizes the request with a reason. Denial is terminal regardless of
// remaining approver slots.
func (s *RequestService) Deny(ctx context.Context, action models.ApproverAction) (*dto.RequestItem, error) {
	if action.Reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "denial reason is required")
	}

	request, err := s.find(ctx, action.RequestID)
	if err != nil {
		return nil, err
	}
	if !request.Status.Pending() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request is already decided")
	}

	request.Status = models.StatusDenied
	request.DenialReason = &action.Reason

	if err := s.repo.UpdateDecision(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record denial")
	}

	s.auditDecision(ctx, action, models.AuditActionRequestDeny)
	if s.notifier != nil {
		s.notifier.RequestDecided(*request, false)
	}

	item := decorateOne(*request)
	return &item, nil
}

// Nudge sends a reminder to the current approver, at most once per cooldown
// window per request. The result is a boolean, never an error, when the
// cooldown suppresses the reminder.
func (s *RequestService) Nudge(ctx context.Context, requesterEID, requestID string) (*dto.NudgeResponse, error) {
	request, err := s.find(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.RequesterEID != requesterEID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requester may nudge")
	}
	if !request.Status.Pending() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request is already decided")
	}

	ok, err := s.nudges.Acquire(ctx, requestID, s.cooldown)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check nudge cooldown")
	}
	if !ok {
		s.metrics.RecordNudge(false)
		resp := &dto.NudgeResponse{Sent: false}
		if remaining, err := s.nudges.Remaining(ctx, requestID); err == nil && remaining > 0 {
			resp.RetryAfter = remaining.Round(time.Minute).String()
		}
		if request.LastNudgedAt != nil {
			resp.LastNudged = request.LastNudgedAt.Format(time.RFC3339)
		}
		return resp, nil
	}

	s.metrics.RecordNudge(true)

	now := s.now()
	if err := s.repo.RecordNudge(ctx, requestID, now); err != nil {
		s.logger.Warn("failed to stamp nudge time", zap.String("request_id", requestID), zap.Error(err))
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		Action:     models.AuditActionRequestNudge,
		Resource:   "access_request",
		ResourceID: &requestID,
	}); err != nil {
		s.logger.Warn("failed to record nudge audit log", zap.Error(err))
	}

	if s.notifier != nil {
		s.notifier.ApproverNudged(*request)
	}

	return &dto.NudgeResponse{Sent: true, LastNudged: now.Format(time.RFC3339)}, nil
}

func (s *RequestService) find(ctx context.Context, id string) (*models.AccessRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

func (s *RequestService) auditDecision(ctx context.Context, action models.ApproverAction, auditAction string) {
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		Action:     auditAction,
		Resource:   "access_request",
		ResourceID: &action.RequestID,
		IPAddress:  action.IP,
		UserAgent:  action.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record decision audit log", zap.Error(err))
	}
}

// statusForApprover maps the next approver slot to a queue status. Roles
// without a dedicated status report as in_progress.
func statusForApprover(role string) models.RequestStatus {
	switch role {
	case rules.ApproverManager:
		return models.StatusPendingManager
	case rules.ApproverDataOwner:
		return models.StatusPendingDataOwner
	case rules.ApproverSecurity:
		return models.StatusPendingSecurity
	default:
		return models.StatusInProgress
	}
}

func decorate(requests []models.AccessRequest) []dto.RequestItem {
	items := make([]dto.RequestItem, len(requests))
	for i, r := range requests {
		items[i] = decorateOne(r)
	}
	return items
}

func decorateOne(request models.AccessRequest) dto.RequestItem {
	return dto.RequestItem{
		AccessRequest:   request,
		CurrentApprover: request.CurrentApprover(),
		BadgeVariant:    models.StatusBadgeVariant(request.Status),
		StatusLabel:     statusLabel(request.Status),
	}
}

func statusLabel(status models.RequestStatus) string {
	switch status {
	case models.StatusPendingManager:
		return "Pending Manager"
	case models.StatusPendingDataOwner:
		return "Pending Data Owner"
	case models.StatusPendingSecurity:
		return "Pending Security"
	case models.StatusApproved:
		return "Approved"
	case models.StatusDenied:
		return "Denied"
	case models.StatusInProgress:
		return "In Progress"
	default:
		return string(status)
	}
}

func pagination(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
