package service

import (
	"github.com/hmoreno/cierre-fiscal/internal/domain"
)

// ============================================================
// Journey state machine
// ============================================================
//
// Step statuses are derived from the monthly snapshot and profile flags on
// every evaluation; nothing here is stored except the manual backup toggle,
// which the journey service persists separately. Evaluation builds a fresh
// step list and never mutates its input.

// stepDef is one node of the declared workflow graph.
type stepDef struct {
	id        domain.StepID
	title     string
	blockedBy []domain.StepID
}

// journeySteps is the close workflow in declared order. backup blocks on
// reconcile rather than fiscal-preview so a profile with the tax engine off
// (fiscal-preview permanently blocked) can still finish its backup.
var journeySteps = []stepDef{
	{id: domain.StepSelectMonth, title: "Select month"},
	{id: domain.StepImportBank, title: "Import bank statement", blockedBy: []domain.StepID{domain.StepSelectMonth}},
	{id: domain.StepImportInvoice, title: "Import invoices", blockedBy: []domain.StepID{domain.StepSelectMonth}},
	{id: domain.StepClassify, title: "Classify expenses", blockedBy: []domain.StepID{domain.StepImportBank, domain.StepImportInvoice}},
	{id: domain.StepReconcile, title: "Reconcile bank and invoices", blockedBy: []domain.StepID{domain.StepClassify}},
	{id: domain.StepFiscalPreview, title: "Fiscal preview", blockedBy: []domain.StepID{domain.StepReconcile}},
	{id: domain.StepBackup, title: "Back up the month", blockedBy: []domain.StepID{domain.StepReconcile}},
}

// EvaluateJourney derives the journey for one month from the snapshot and
// the resolved profile flags. The backup step's status is carried over from
// current verbatim; every other status is recomputed.
func EvaluateJourney(current domain.JourneyState, snap domain.MonthlySnapshot, flags domain.ResolvedFlags) domain.JourneyState {
	steps := make([]domain.Step, 0, len(journeySteps))
	for _, def := range journeySteps {
		steps = append(steps, domain.Step{
			ID:        def.id,
			Title:     def.title,
			Status:    deriveStatus(def.id, &current, snap, flags),
			BlockedBy: append([]domain.StepID(nil), def.blockedBy...),
		})
	}

	applyDependencies(steps, flags)

	return domain.JourneyState{
		ID:        current.ID,
		ProfileID: current.ProfileID,
		Month:     snap.Month,
		Steps:     steps,
	}
}

// deriveStatus computes the pre-dependency status of one step.
func deriveStatus(id domain.StepID, current *domain.JourneyState, snap domain.MonthlySnapshot, flags domain.ResolvedFlags) domain.StepStatus {
	stats := snap.Stats
	switch id {
	case domain.StepSelectMonth:
		return domain.StepDone

	case domain.StepImportBank:
		if stats.SourcesCount[domain.SourceBank] > 0 {
			return domain.StepDone
		}
		return domain.StepPending

	case domain.StepImportInvoice:
		if stats.SourcesCount[domain.SourceInvoice] > 0 {
			return domain.StepDone
		}
		return domain.StepPending

	case domain.StepClassify:
		if stats.RecordCount > 0 && stats.UnknownClassifications == 0 {
			return domain.StepDone
		}
		return domain.StepPending

	case domain.StepReconcile:
		bothPresent := stats.SourcesCount[domain.SourceBank] > 0 && stats.SourcesCount[domain.SourceInvoice] > 0
		if bothPresent && !snap.Signals.NeedsReconciliation {
			return domain.StepDone
		}
		return domain.StepPending

	case domain.StepFiscalPreview:
		if !flags.TaxEngineEnabled {
			return domain.StepBlocked // unconditional while the flag is off
		}
		if snap.TaxSummary != nil && snap.TaxSummary.Confidence > 0 {
			return domain.StepDone
		}
		return domain.StepPending

	case domain.StepBackup:
		// Manual toggle: preserved from prior state, never recomputed. A
		// previously forced "blocked" reads as not-yet-done.
		if prev := current.StepByID(domain.StepBackup); prev != nil && prev.Status == domain.StepDone {
			return domain.StepDone
		}
		return domain.StepPending
	}
	return domain.StepPending
}

// applyDependencies forces steps with unmet blockers to blocked and releases
// previously blocked steps whose blockers are now satisfied. fiscal-preview
// stays blocked while its feature flag is off even with reconcile done.
func applyDependencies(steps []domain.Step, flags domain.ResolvedFlags) {
	done := make(map[domain.StepID]bool, len(steps))
	for _, s := range steps {
		done[s.ID] = s.Status == domain.StepDone
	}

	for i := range steps {
		if steps[i].ID == domain.StepSelectMonth {
			continue
		}

		unmet := false
		for _, dep := range steps[i].BlockedBy {
			if !done[dep] {
				unmet = true
				break
			}
		}

		if unmet {
			steps[i].Status = domain.StepBlocked
			done[steps[i].ID] = false
			continue
		}

		if steps[i].Status == domain.StepBlocked && !(steps[i].ID == domain.StepFiscalPreview && !flags.TaxEngineEnabled) {
			steps[i].Status = domain.StepPending
		}
	}
}

// NextAction returns the first pending step in declared order, or nil when
// the workflow has nothing actionable left (done or permanently blocked).
func NextAction(state domain.JourneyState) *domain.Step {
	for i := range state.Steps {
		if state.Steps[i].Status == domain.StepPending {
			step := state.Steps[i]
			return &step
		}
	}
	return nil
}
