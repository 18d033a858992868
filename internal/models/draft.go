package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// WizardStep is the position in the strictly linear request wizard.
type WizardStep int

const (
	StepPrerequisites WizardStep = iota + 1
	StepDetails
	StepReview
	StepConfirmation
)

// Label returns the display name for the step.
func (s WizardStep) Label() string {
	switch s {
	case StepPrerequisites:
		return "Prerequisites"
	case StepDetails:
		return "Details"
	case StepReview:
		return "Review"
	case StepConfirmation:
		return "Confirmation"
	default:
		return "Unknown"
	}
}

// FileAttachment records metadata for an uploaded evidence file. PrereqID
// names the prerequisite the file is evidence for, when the upload was made
// against one.
type FileAttachment struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MIMEType   string    `json:"mime_type"`
	PrereqID   string    `json:"prereq_id,omitempty"`
	StoredPath string    `json:"stored_path,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// AttachmentList is a JSONB column of attachments.
type AttachmentList []FileAttachment

// Value implements driver.Valuer.
func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *AttachmentList) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("attachments: unexpected column type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// DraftRequest is the in-progress wizard session. The first asset is the
// "primary" asset used for context derivation. One draft is active per owner
// and primary asset; drafts are cleared on submission or explicit cancel.
type DraftRequest struct {
	ID            string                     `json:"id"`
	OwnerEID      string                     `json:"owner_eid"`
	Assets        []Asset                    `json:"assets"`
	ActiveAssetID string                     `json:"active_asset_id,omitempty"`
	AccessType    AccessType                 `json:"access_type,omitempty"`
	Environment   Environment                `json:"environment,omitempty"`
	Step          WizardStep                 `json:"step"`
	PrereqStatus  PrereqStatusMap            `json:"prereq_status"`
	FieldValues   FieldValueMap              `json:"field_values"`
	Attachments   []FileAttachment           `json:"attachments"`
	DatasetRoles  map[string][]string        `json:"dataset_roles"`
	CbtOverrides  map[string]map[string]bool `json:"cbt_overrides"`
	LastSavedAt   time.Time                  `json:"last_saved_at"`
}

// PrimaryAsset returns the asset that drives context derivation.
func (d *DraftRequest) PrimaryAsset() *Asset {
	if len(d.Assets) == 0 {
		return nil
	}
	return &d.Assets[0]
}
