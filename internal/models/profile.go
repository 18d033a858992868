package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// CbtCompletionMap records the last completion timestamp per training id.
type CbtCompletionMap map[string]time.Time

// Value implements driver.Valuer for JSONB storage.
func (m CbtCompletionMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage.
func (m *CbtCompletionMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cbt completions: unexpected column type %T", src)
	}
	return json.Unmarshal(raw, m)
}

// UserProfile is the requester identity and training history consumed by the
// prerequisite auto-verifier. Supplied by the profiles table, read-only to the
// request workflow.
type UserProfile struct {
	EID                string           `db:"eid" json:"eid"`
	Name               string           `db:"name" json:"name"`
	Title              string           `db:"title" json:"title"`
	LOB                string           `db:"lob" json:"lob"`
	CompletedTrainings pq.StringArray   `db:"completed_trainings" json:"completed_trainings"`
	CbtCompletions     CbtCompletionMap `db:"cbt_completions" json:"cbt_completions"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// HasTraining reports whether the profile lists the given training id.
func (p *UserProfile) HasTraining(id string) bool {
	for _, t := range p.CompletedTrainings {
		if t == id {
			return true
		}
	}
	return false
}
