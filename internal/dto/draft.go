package dto

import "github.com/accessdesk/access-api/internal/models"

// StartDraftRequest opens a wizard session for one or more assets. The first
// asset id is the primary asset driving context derivation.
type StartDraftRequest struct {
	AssetIDs    []string `json:"asset_ids" validate:"required,min=1,dive,required"`
	AccessType  string   `json:"access_type" validate:"omitempty,oneof=human machine"`
	Environment string   `json:"environment" validate:"omitempty,oneof=dev stage prod"`
}

// UpdateDraftRequest carries partial wizard state. Nil members leave the
// stored value untouched.
type UpdateDraftRequest struct {
	AccessType    *string                    `json:"access_type" validate:"omitempty,oneof=human machine"`
	Environment   *string                    `json:"environment" validate:"omitempty,oneof=dev stage prod"`
	ActiveAssetID *string                    `json:"active_asset_id"`
	FieldValues   map[string]RawValue        `json:"field_values"`
	DatasetRoles  map[string][]string        `json:"dataset_roles"`
	CbtOverrides  map[string]map[string]bool `json:"cbt_overrides"`
}

// RawValue is an untyped form value before catalog-driven coercion.
type RawValue struct {
	Text string   `json:"text"`
	List []string `json:"list,omitempty"`
}

// SetPrereqStatusRequest marks a prerequisite complete or incomplete for an
// asset within the active draft.
type SetPrereqStatusRequest struct {
	AssetID  string `json:"asset_id" validate:"required"`
	PrereqID string `json:"prereq_id" validate:"required"`
	Complete bool   `json:"complete"`
}

// StepRequest drives a wizard navigation action.
type StepRequest struct {
	// Action is one of next, back, goto.
	Action string `json:"action" validate:"required,oneof=next back goto"`
	// Target is required for goto and ignored otherwise.
	Target int `json:"target" validate:"omitempty,min=1,max=4"`
}

// DraftResponse is the wizard session echoed back after every mutation, with
// the derived rule state the client renders from.
type DraftResponse struct {
	Draft         *models.DraftRequest             `json:"draft"`
	Prerequisites map[string][]models.Prerequisite `json:"prerequisites"`
	Fields        []models.AccessField             `json:"fields"`
	ApproverPath  []string                         `json:"approver_path"`
	CanAdvance    bool                             `json:"can_advance"`
	// BlockReason says why the next step is unreachable when CanAdvance is
	// false, so the client can tell a missing access type apart from
	// outstanding prerequisites.
	BlockReason string           `json:"block_reason,omitempty"`
	FieldErrors []FieldErrorItem `json:"field_errors,omitempty"`
}

// FieldErrorItem is a single field validation failure surfaced to the client.
type FieldErrorItem struct {
	FieldID string `json:"field_id"`
	Message string `json:"message"`
}

// SubmitDraftResponse reports the fan-out result of a submission.
type SubmitDraftResponse struct {
	Requests []models.AccessRequest `json:"requests"`
}

// AttachmentResponse describes a stored evidence upload.
type AttachmentResponse struct {
	Attachment models.FileAttachment `json:"attachment"`
	// Pending is true while the configured upload delay has not elapsed.
	Pending bool `json:"pending"`
}
