package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/accessdesk/access-api/internal/dto"
	"github.com/accessdesk/access-api/internal/models"
	"github.com/accessdesk/access-api/internal/rules"
	appErrors "github.com/accessdesk/access-api/pkg/errors"
	"github.com/accessdesk/access-api/pkg/response"
)

type approvalService interface {
	ListPending(ctx context.Context, approverRole string, query dto.ListRequestsQuery) ([]dto.RequestItem, *models.Pagination, error)
	Approve(ctx context.Context, action models.ApproverAction) (*dto.RequestItem, error)
	Deny(ctx context.Context, action models.ApproverAction) (*dto.RequestItem, error)
}

// ApprovalHandler serves the approver queue and decision endpoints.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler builds a new handler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

var approverRoles = map[string]struct{}{
	rules.ApproverManager:    {},
	rules.ApproverDataOwner:  {},
	rules.ApproverAPIOwner:   {},
	rules.ApproverSecurity:   {},
	rules.ApproverCompliance: {},
}

// ListPending godoc
// @Summary List requests waiting on an approver role
// @Description Oldest requests first, filtered to the role currently holding the request
// @Tags Approvals
// @Produce json
// @Param role query string false "Approver role, defaults to Manager"
// @Success 200 {object} response.Envelope
// @Router /approvals [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	role := c.DefaultQuery("role", rules.ApproverManager)
	if _, ok := approverRoles[role]; !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown approver role"))
		return
	}

	var query dto.ListRequestsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request query"))
		return
	}

	items, pagination, err := h.service.ListPending(c.Request.Context(), role, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Approve godoc
// @Summary Approve a request at its current slot
// @Description Advances the request along its approver path; the final slot approves outright
// @Tags Approvals
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approvals/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	item, err := h.service.Approve(c.Request.Context(), h.action(c, ""))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Deny godoc
// @Summary Deny a request with a reason
// @Description Denial is terminal regardless of remaining approver slots
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param payload body dto.DenyRequest true "Denial reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /approvals/{id}/deny [post]
func (h *ApprovalHandler) Deny(c *gin.Context) {
	var req dto.DenyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.Reason == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "denial reason is required"))
		return
	}

	item, err := h.service.Deny(c.Request.Context(), h.action(c, req.Reason))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

func (h *ApprovalHandler) action(c *gin.Context, reason string) models.ApproverAction {
	return models.ApproverAction{
		RequestID:   c.Param("id"),
		ApproverEID: requesterEID(c),
		Reason:      reason,
		IP:          c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
	}
}
