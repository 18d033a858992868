package dto

import "github.com/accessdesk/access-api/internal/models"

// ListAssetsQuery captures the catalog listing filters.
type ListAssetsQuery struct {
	Type     string `form:"type" validate:"omitempty,oneof=dataset api bi warehouse"`
	Search   string `form:"search"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// ContextPreviewQuery resolves prerequisites, fields and the approver path for
// a hypothetical request context without touching any draft.
type ContextPreviewQuery struct {
	AccessType  string `form:"access_type" validate:"required,oneof=human machine"`
	AssetType   string `form:"asset_type" validate:"required,oneof=dataset api bi warehouse"`
	Environment string `form:"environment" validate:"required,oneof=dev stage prod"`
}

// ContextPreviewResponse is the resolved rule set for a context.
type ContextPreviewResponse struct {
	Prerequisites []models.Prerequisite `json:"prerequisites"`
	Fields        []models.AccessField  `json:"fields"`
	ApproverPath  []string              `json:"approver_path"`
}

// ProfileResponse exposes the requester profile consumed by the wizard.
type ProfileResponse struct {
	Profile  *models.UserProfile `json:"profile"`
	Verified []string            `json:"verified_trainings"`
}
