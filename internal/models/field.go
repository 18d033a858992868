package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FieldType enumerates the supported form field kinds.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldNumber   FieldType = "number"
	FieldEmail    FieldType = "email"
	FieldTags     FieldType = "tags"
	FieldFile     FieldType = "file"
	FieldDate     FieldType = "date"
)

// FieldOption is a selectable option for select fields.
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// AccessField is a form-field descriptor from the field catalog. The context
// resolver selects a subset per request context; order defines presentation
// order.
type AccessField struct {
	ID             string        `json:"id"`
	Label          string        `json:"label"`
	Placeholder    string        `json:"placeholder,omitempty"`
	Type           FieldType     `json:"type"`
	Required       bool          `json:"required"`
	Options        []FieldOption `json:"options,omitempty"`
	Description    string        `json:"description,omitempty"`
	RightAdornment string        `json:"right_adornment,omitempty"`
}

// FieldValue is a typed form value. The Kind mirrors the catalog type of the
// field it was written for; exactly one payload member is meaningful.
type FieldValue struct {
	Kind   FieldType `json:"kind"`
	Text   string    `json:"text,omitempty"`
	Tags   []string  `json:"tags,omitempty"`
	Number float64   `json:"number,omitempty"`
}

// IsZero reports whether no value has been entered.
func (v FieldValue) IsZero() bool {
	switch v.Kind {
	case FieldTags:
		return len(v.Tags) == 0
	case FieldNumber:
		return v.Number == 0
	default:
		return v.Text == ""
	}
}

// String renders the value for review/export surfaces.
func (v FieldValue) String() string {
	switch v.Kind {
	case FieldTags:
		out := ""
		for i, tag := range v.Tags {
			if i > 0 {
				out += ", "
			}
			out += tag
		}
		return out
	case FieldNumber:
		return trimFloat(v.Number)
	default:
		return v.Text
	}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// FieldValueMap maps field ids to their typed values.
type FieldValueMap map[string]FieldValue

// Value implements driver.Valuer for JSONB storage.
func (m FieldValueMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage.
func (m *FieldValueMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("field values: unexpected column type %T", src)
	}
	return json.Unmarshal(raw, m)
}
