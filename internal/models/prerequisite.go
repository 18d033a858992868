package models

// PrereqStatus is the per-asset completion state of a single prerequisite.
type PrereqStatus string

const (
	// PrereqIncomplete is the default, unsatisfied state.
	PrereqIncomplete PrereqStatus = "incomplete"
	// PrereqComplete means the requester self-attested or attached evidence.
	PrereqComplete PrereqStatus = "complete"
	// PrereqAuto means the prerequisite was machine-verified from the profile.
	PrereqAuto PrereqStatus = "auto"
)

// Satisfied reports whether the status counts toward wizard progression.
func (s PrereqStatus) Satisfied() bool {
	return s == PrereqComplete || s == PrereqAuto
}

// Prerequisite is a catalog entry describing a precondition for access.
// Catalog entries are defined once at startup and never mutated.
type Prerequisite struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Description  string `json:"description"`
	Link         string `json:"link,omitempty"`
	AutoVerified bool   `json:"auto_verified"`
	Verifiable   bool   `json:"verifiable"`
	AllowUpload  bool   `json:"allow_upload,omitempty"`
}

// PrereqStatusMap tracks status per (assetID, prerequisiteID) pair.
type PrereqStatusMap map[string]map[string]PrereqStatus

// Get returns the recorded status, defaulting to incomplete.
func (m PrereqStatusMap) Get(assetID, prereqID string) PrereqStatus {
	if byPrereq, ok := m[assetID]; ok {
		if status, ok := byPrereq[prereqID]; ok {
			return status
		}
	}
	return PrereqIncomplete
}

// Set records a status, allocating nested maps as needed.
func (m PrereqStatusMap) Set(assetID, prereqID string, status PrereqStatus) {
	byPrereq, ok := m[assetID]
	if !ok {
		byPrereq = make(map[string]PrereqStatus)
		m[assetID] = byPrereq
	}
	byPrereq[prereqID] = status
}
