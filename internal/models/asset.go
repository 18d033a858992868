package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AssetType enumerates the requestable asset categories.
type AssetType string

const (
	AssetDataset   AssetType = "dataset"
	AssetAPI       AssetType = "api"
	AssetBI        AssetType = "bi"
	AssetWarehouse AssetType = "warehouse"
)

// AccessType distinguishes human from machine (service-to-service) access.
type AccessType string

const (
	AccessHuman   AccessType = "human"
	AccessMachine AccessType = "machine"
)

// Environment enumerates deployment environments an asset can be requested in.
type Environment string

const (
	EnvDev   Environment = "dev"
	EnvStage Environment = "stage"
	EnvProd  Environment = "prod"
)

// CbtRequirement is a computer-based training attached to a dataset role.
// Trainings expire: completion is only valid within ExpiryMonths of the
// last completion date.
type CbtRequirement struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Link            string     `json:"link,omitempty"`
	ExpiryMonths    int        `json:"expiry_months"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

// Valid reports whether the training completion is still within its expiry window.
func (c CbtRequirement) Valid(now time.Time) bool {
	if c.LastCompletedAt == nil {
		return false
	}
	return now.Before(c.LastCompletedAt.AddDate(0, c.ExpiryMonths, 0))
}

// RoleRequirement describes a dataset role a requester may select.
type RoleRequirement struct {
	RoleID      string           `json:"role_id"`
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	HasAccess   bool             `json:"has_access"`
	RequiredCbt []CbtRequirement `json:"required_cbt,omitempty"`
}

// RoleRequirements is a JSONB column of dataset role requirements.
type RoleRequirements []RoleRequirement

// Value implements driver.Valuer for JSONB storage.
func (r RoleRequirements) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB storage.
func (r *RoleRequirements) Scan(src interface{}) error {
	if src == nil {
		*r = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("role requirements: unexpected column type %T", src)
	}
	return json.Unmarshal(raw, r)
}

// Asset identifies a requestable resource. Reference data: created by catalog
// loads, read-only to the request workflow.
type Asset struct {
	ID          string           `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Type        AssetType        `db:"type" json:"type"`
	Description string           `db:"description" json:"description"`
	Owner       *string          `db:"owner" json:"owner,omitempty"`
	Roles       RoleRequirements `db:"roles" json:"roles,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AssetList is a JSONB snapshot of assets carried on a submitted request.
type AssetList []Asset

// Value implements driver.Valuer.
func (a AssetList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *AssetList) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("asset list: unexpected column type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// AssetFilter captures filtering criteria for the catalog listing.
type AssetFilter struct {
	Type     *AssetType
	Search   string
	Page     int
	PageSize int
}
