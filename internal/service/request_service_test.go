package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessdesk/access-api/internal/models"
	"github.com/accessdesk/access-api/internal/rules"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
)

type requestRepoStub struct {
	requests map[string]*models.AccessRequest
	nudged   map[string]time.Time
}

func newRequestRepoStub(requests ...*models.AccessRequest) *requestRepoStub {
	stub := &requestRepoStub{requests: make(map[string]*models.AccessRequest), nudged: make(map[string]time.Time)}
	for _, r := range requests {
		stub.requests[r.ID] = r
	}
	return stub
}

func (s *requestRepoStub) FindByID(ctx context.Context, id string) (*models.AccessRequest, error) {
	if r, ok := s.requests[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *requestRepoStub) ListByRequester(ctx context.Context, eid string, status *models.RequestStatus, page, pageSize int) ([]models.AccessRequest, int, error) {
	var out []models.AccessRequest
	for _, r := range s.requests {
		if r.RequesterEID != eid {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (s *requestRepoStub) ListPendingForApprover(ctx context.Context, approverRole string, page, pageSize int) ([]models.AccessRequest, int, error) {
	var out []models.AccessRequest
	for _, r := range s.requests {
		if r.Status.Pending() && r.CurrentApprover() == approverRole {
			out = append(out, *r)
		}
	}
	return out, len(out), nil
}

func (s *requestRepoStub) UpdateDecision(ctx context.Context, req *models.AccessRequest) error {
	if _, ok := s.requests[req.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *req
	s.requests[req.ID] = &copied
	return nil
}

func (s *requestRepoStub) RecordNudge(ctx context.Context, id string, nudgedAt time.Time) error {
	s.nudged[id] = nudgedAt
	return nil
}

type nudgeLimiterStub struct {
	allow     bool
	remaining time.Duration
}

func (s *nudgeLimiterStub) Acquire(ctx context.Context, requestID string, cooldown time.Duration) (bool, error) {
	return s.allow, nil
}

func (s *nudgeLimiterStub) Remaining(ctx context.Context, requestID string) (time.Duration, error) {
	return s.remaining, nil
}

// cooldownWindowStub models the Redis SET NX semantics against an injectable
// clock: the first Acquire in a window wins and stamps the expiry, later ones
// lose until the window lapses.
type cooldownWindowStub struct {
	now    func() time.Time
	expiry map[string]time.Time
}

func (s *cooldownWindowStub) Acquire(ctx context.Context, requestID string, cooldown time.Duration) (bool, error) {
	if until, ok := s.expiry[requestID]; ok && s.now().Before(until) {
		return false, nil
	}
	s.expiry[requestID] = s.now().Add(cooldown)
	return true, nil
}

func (s *cooldownWindowStub) Remaining(ctx context.Context, requestID string) (time.Duration, error) {
	until, ok := s.expiry[requestID]
	if !ok {
		return 0, nil
	}
	remaining := until.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

type decisionNotifierStub struct {
	decided  []models.AccessRequest
	approved []bool
	nudged   []models.AccessRequest
}

func (s *decisionNotifierStub) RequestDecided(request models.AccessRequest, approved bool) {
	s.decided = append(s.decided, request)
	s.approved = append(s.approved, approved)
}

func (s *decisionNotifierStub) ApproverNudged(request models.AccessRequest) {
	s.nudged = append(s.nudged, request)
}

func pendingRequest(id string, path ...string) *models.AccessRequest {
	if len(path) == 0 {
		path = []string{rules.ApproverManager, rules.ApproverDataOwner}
	}
	return &models.AccessRequest{
		ID:           id,
		RequesterEID: "E123456",
		Status:       models.StatusPendingManager,
		ApproverPath: path,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestRequestServiceApproveAdvancesPath(t *testing.T) {
	repo := newRequestRepoStub(pendingRequest("r1"))
	notifier := &decisionNotifierStub{}
	svc := NewRequestService(repo, &nudgeLimiterStub{allow: true}, &submissionRepoStub{}, notifier, nil, validator.New(), nil, 0)

	item, err := svc.Approve(context.Background(), models.ApproverAction{RequestID: "r1", ApproverEID: "M1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingDataOwner, item.Status)
	assert.Equal(t, 1, item.CurrentApproverIndex)
	assert.Equal(t, rules.ApproverDataOwner, item.CurrentApprover)
	assert.Empty(t, notifier.decided)

	item, err = svc.Approve(context.Background(), models.ApproverAction{RequestID: "r1", ApproverEID: "D1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, item.Status)
	require.Len(t, notifier.decided, 1)
	assert.True(t, notifier.approved[0])
}

func TestRequestServiceApproveMapsRoleStatus(t *testing.T) {
	repo := newRequestRepoStub(pendingRequest("r1", rules.ApproverManager, rules.ApproverAPIOwner, rules.ApproverSecurity))
	svc := NewRequestService(repo, &nudgeLimiterStub{}, &submissionRepoStub{}, nil, nil, validator.New(), nil, 0)

	// API Owner has no dedicated status and reports as in progress.
	item, err := svc.Approve(context.Background(), models.ApproverAction{RequestID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, item.Status)

	item, err = svc.Approve(context.Background(), models.ApproverAction{RequestID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingSecurity, item.Status)
}

func TestRequestServiceApproveDecidedConflicts(t *testing.T) {
	decided := pendingRequest("r1")
	decided.Status = models.StatusApproved
	repo := newRequestRepoStub(decided)
	svc := NewRequestService(repo, &nudgeLimiterStub{}, &submissionRepoStub{}, nil, nil, validator.New(), nil, 0)

	_, err := svc.Approve(context.Background(), models.ApproverAction{RequestID: "r1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceDenyIsTerminal(t *testing.T) {
	repo := newRequestRepoStub(pendingRequest("r1"))
	notifier := &decisionNotifierStub{}
	svc := NewRequestService(repo, &nudgeLimiterStub{}, &submissionRepoStub{}, notifier, nil, validator.New(), nil, 0)

	_, err := svc.Deny(context.Background(), models.ApproverAction{RequestID: "r1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	item, err := svc.Deny(context.Background(), models.ApproverAction{RequestID: "r1", Reason: "insufficient justification"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDenied, item.Status)
	require.NotNil(t, item.DenialReason)
	assert.Equal(t, "insufficient justification", *item.DenialReason)
	require.Len(t, notifier.approved, 1)
	assert.False(t, notifier.approved[0])

	_, err = svc.Deny(context.Background(), models.ApproverAction{RequestID: "r1", Reason: "again"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceNudgeRequesterOnly(t *testing.T) {
	repo := newRequestRepoStub(pendingRequest("r1"))
	svc := NewRequestService(repo, &nudgeLimiterStub{allow: true}, &submissionRepoStub{}, nil, nil, validator.New(), nil, 0)

	_, err := svc.Nudge(context.Background(), "E999999", "r1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceNudgeCooldown(t *testing.T) {
	repo := newRequestRepoStub(pendingRequest("r1"))
	notifier := &decisionNotifierStub{}
	svc := NewRequestService(repo, &nudgeLimiterStub{allow: true}, &submissionRepoStub{}, notifier, nil, validator.New(), nil, 24*time.Hour)

	res, err := svc.Nudge(context.Background(), "E123456", "r1")
	require.NoError(t, err)
	assert.True(t, res.Sent)
	assert.NotEmpty(t, res.LastNudged)
	assert.Contains(t, repo.nudged, "r1")
	assert.Len(t, notifier.nudged, 1)

	// A suppressed reminder is a result, not an error.
	svc = NewRequestService(repo, &nudgeLimiterStub{allow: false, remaining: 3 * time.Hour}, &submissionRepoStub{}, notifier, nil, validator.New(), nil, 24*time.Hour)
	res, err = svc.Nudge(context.Background(), "E123456", "r1")
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, "3h0m0s", res.RetryAfter)
	assert.Len(t, notifier.nudged, 1)
}

func TestRequestServiceNudgeCooldownBoundary(t *testing.T) {
	repo := newRequestRepoStub(pendingRequest("r1"))
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	current := base
	limiter := &cooldownWindowStub{now: func() time.Time { return current }, expiry: make(map[string]time.Time)}
	svc := NewRequestService(repo, limiter, &submissionRepoStub{}, nil, nil, validator.New(), nil, 24*time.Hour)
	svc.now = func() time.Time { return current }

	res, err := svc.Nudge(context.Background(), "E123456", "r1")
	require.NoError(t, err)
	assert.True(t, res.Sent)

	// One hour shy of the window the reminder is still suppressed.
	current = base.Add(23 * time.Hour)
	res, err = svc.Nudge(context.Background(), "E123456", "r1")
	require.NoError(t, err)
	assert.False(t, res.Sent)
	assert.Equal(t, "1h0m0s", res.RetryAfter)

	// Just past the full window the cooldown has lapsed.
	current = base.Add(24*time.Hour + time.Millisecond)
	res, err = svc.Nudge(context.Background(), "E123456", "r1")
	require.NoError(t, err)
	assert.True(t, res.Sent)
}

func TestRequestServiceNudgeDecidedConflicts(t *testing.T) {
	decided := pendingRequest("r1")
	decided.Status = models.StatusDenied
	repo := newRequestRepoStub(decided)
	svc := NewRequestService(repo, &nudgeLimiterStub{allow: true}, &submissionRepoStub{}, nil, nil, validator.New(), nil, 0)

	_, err := svc.Nudge(context.Background(), "E123456", "r1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
