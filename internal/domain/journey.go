package domain

// ============================================================
// Journey (guided monthly close workflow)
// ============================================================

// StepID identifies a journey step.
type StepID string

const (
	StepSelectMonth   StepID = "select-month"
	StepImportBank    StepID = "import-bank"
	StepImportInvoice StepID = "import-invoice"
	StepClassify      StepID = "classify"
	StepReconcile     StepID = "reconcile"
	StepFiscalPreview StepID = "fiscal-preview"
	StepBackup        StepID = "backup"
)

// StepStatus is the derived state of one step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepDone    StepStatus = "done"
	StepBlocked StepStatus = "blocked"
)

// Step is one node of the close workflow. Status is a pure function of the
// monthly snapshot and profile flags for every step except backup, which is
// user-toggled.
type Step struct {
	ID        StepID     `json:"id"`
	Title     string     `json:"title"`
	Status    StepStatus `json:"status"`
	BlockedBy []StepID   `json:"blocked_by,omitempty"`
}

// JourneyState is the evaluated workflow for one profile-month.
type JourneyState struct {
	ID        string `json:"id"`
	ProfileID string `json:"profile_id"`
	Month     string `json:"month"` // YYYY-MM
	Steps     []Step `json:"steps"`
}

// StepByID returns a pointer into Steps for the given id, or nil.
func (j *JourneyState) StepByID(id StepID) *Step {
	for i := range j.Steps {
		if j.Steps[i].ID == id {
			return &j.Steps[i]
		}
	}
	return nil
}
