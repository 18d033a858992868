package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessdesk/access-api/internal/dto"
	"github.com/accessdesk/access-api/internal/middleware"
	"github.com/accessdesk/access-api/internal/models"
	"github.com/accessdesk/access-api/internal/rules"
)

type approvalServiceMock struct {
	listRole string
	action   *models.ApproverAction
	err      error
}

func (m *approvalServiceMock) ListPending(ctx context.Context, approverRole string, query dto.ListRequestsQuery) ([]dto.RequestItem, *models.Pagination, error) {
	m.listRole = approverRole
	return nil, &models.Pagination{}, m.err
}

func (m *approvalServiceMock) Approve(ctx context.Context, action models.ApproverAction) (*dto.RequestItem, error) {
	m.action = &action
	return &dto.RequestItem{}, m.err
}

func (m *approvalServiceMock) Deny(ctx context.Context, action models.ApproverAction) (*dto.RequestItem, error) {
	m.action = &action
	return &dto.RequestItem{}, m.err
}

func newApprovalTestContext(t *testing.T, method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u2", EID: "M100", Role: models.RoleApprover})
	return c, w
}

func TestApprovalHandlerListPendingDefaultsToManager(t *testing.T) {
	mock := &approvalServiceMock{}
	handler := NewApprovalHandler(mock)
	c, w := newApprovalTestContext(t, http.MethodGet, "/approvals", nil)

	handler.ListPending(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rules.ApproverManager, mock.listRole)
}

func TestApprovalHandlerListPendingUnknownRole(t *testing.T) {
	handler := NewApprovalHandler(&approvalServiceMock{})
	c, w := newApprovalTestContext(t, http.MethodGet, "/approvals?role=Janitor", nil)

	handler.ListPending(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalHandlerApproveCarriesActor(t *testing.T) {
	mock := &approvalServiceMock{}
	handler := NewApprovalHandler(mock)
	c, w := newApprovalTestContext(t, http.MethodPost, "/approvals/r1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.Approve(c)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.action)
	assert.Equal(t, "r1", mock.action.RequestID)
	assert.Equal(t, "M100", mock.action.ApproverEID)
}

func TestApprovalHandlerDenyRequiresReason(t *testing.T) {
	handler := NewApprovalHandler(&approvalServiceMock{})
	c, w := newApprovalTestContext(t, http.MethodPost, "/approvals/r1/deny", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.Deny(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalHandlerDeny(t *testing.T) {
	mock := &approvalServiceMock{}
	handler := NewApprovalHandler(mock)
	body, _ := json.Marshal(dto.DenyRequest{Reason: "missing approvals upstream"})
	c, w := newApprovalTestContext(t, http.MethodPost, "/approvals/r1/deny", body)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.Deny(c)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.action)
	assert.Equal(t, "missing approvals upstream", mock.action.Reason)
}
