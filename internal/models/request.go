package models

import (
	"time"

	"github.com/lib/pq"
)

// RequestStatus tracks where a submitted request sits in its approval path.
type RequestStatus string

const (
	StatusPendingManager   RequestStatus = "pending_manager"
	StatusPendingDataOwner RequestStatus = "pending_data_owner"
	StatusPendingSecurity  RequestStatus = "pending_security"
	StatusApproved         RequestStatus = "approved"
	StatusDenied           RequestStatus = "denied"
	StatusInProgress       RequestStatus = "in_progress"
)

// Pending reports whether the request still awaits an approval decision.
func (s RequestStatus) Pending() bool {
	switch s {
	case StatusPendingManager, StatusPendingDataOwner, StatusPendingSecurity, StatusInProgress:
		return true
	default:
		return false
	}
}

// BadgeVariant names the presentation variant for a status badge.
type BadgeVariant string

const (
	BadgeDefault   BadgeVariant = "default"
	BadgeSecondary BadgeVariant = "secondary"
	BadgeOutline   BadgeVariant = "outline"
)

// StatusBadgeVariant maps every request status to its badge variant. Total
// over RequestStatus; unknown values fall back to outline.
func StatusBadgeVariant(status RequestStatus) BadgeVariant {
	switch status {
	case StatusApproved:
		return BadgeDefault
	case StatusDenied:
		return BadgeSecondary
	case StatusPendingManager, StatusPendingDataOwner, StatusPendingSecurity, StatusInProgress:
		return BadgeSecondary
	default:
		return BadgeOutline
	}
}

// AccessRequest is a finalized, submitted request. One record per asset is
// produced at submission. Immutable except for status transitions driven by
// approver actions; never deleted.
type AccessRequest struct {
	ID                   string         `db:"id" json:"id"`
	Assets               AssetList      `db:"assets" json:"assets"`
	AccessType           AccessType     `db:"access_type" json:"access_type"`
	Environment          Environment    `db:"environment" json:"environment,omitempty"`
	RequesterEID         string         `db:"requester_eid" json:"requester_eid"`
	RequesterName        string         `db:"requester_name" json:"requester_name"`
	RequesterTitle       string         `db:"requester_title" json:"requester_title"`
	RequesterLOB         string         `db:"requester_lob" json:"requester_lob"`
	Fields               FieldValueMap  `db:"fields" json:"fields"`
	Status               RequestStatus  `db:"status" json:"status"`
	ApproverPath         pq.StringArray `db:"approver_path" json:"approver_path"`
	CurrentApproverIndex int            `db:"current_approver_index" json:"current_approver_index"`
	Attachments          AttachmentList `db:"attachments" json:"attachments,omitempty"`
	SelectedRoles        pq.StringArray `db:"selected_roles" json:"selected_roles,omitempty"`
	DenialReason         *string        `db:"denial_reason" json:"denial_reason,omitempty"`
	LastNudgedAt         *time.Time     `db:"last_nudged_at" json:"last_nudged_at,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// CurrentApprover returns the role label the request is waiting on, or ""
// once the path is exhausted or the request is decided.
func (r *AccessRequest) CurrentApprover() string {
	if r.CurrentApproverIndex < 0 || r.CurrentApproverIndex >= len(r.ApproverPath) {
		return ""
	}
	return r.ApproverPath[r.CurrentApproverIndex]
}

// ApproverAction captures an approve/deny decision on a request.
type ApproverAction struct {
	RequestID   string
	ApproverEID string
	Reason      string
	IP          string
	UserAgent   string
}
