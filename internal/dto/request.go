package dto

import "github.com/accessdesk/access-api/internal/models"

// ListRequestsQuery filters a request listing.
type ListRequestsQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=pending_manager pending_data_owner pending_security approved denied in_progress"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// RequestItem decorates a stored request with derived presentation state.
type RequestItem struct {
	models.AccessRequest
	CurrentApprover string              `json:"current_approver,omitempty"`
	BadgeVariant    models.BadgeVariant `json:"badge_variant"`
	StatusLabel     string              `json:"status_label"`
}

// DenyRequest carries the mandatory denial reason.
type DenyRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// NudgeResponse reports whether a reminder was sent or suppressed by the
// cooldown window.
type NudgeResponse struct {
	Sent       bool   `json:"sent"`
	RetryAfter string `json:"retry_after,omitempty"`
	LastNudged string `json:"last_nudged,omitempty"`
}
