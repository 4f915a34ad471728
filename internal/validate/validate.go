// Package validate checks converted item records against the schema
// invariants. Validation is advisory at write time (a violating record is
// still written, flagged) and authoritative for downstream gating.
package validate

import (
	"fmt"

	"prism/internal/types"
)

// LockedMasteryGate is the only admissible mastery-gate threshold. Changing
// it would make joint scores incomparable across the item bank.
const LockedMasteryGate = 3

// Report is the outcome of validating one record.
type Report struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Check validates a converted item record.
func Check(item *types.ConvertedItem) Report {
	var errors []string
	var warnings []string

	errors = append(errors, item.Extraction.CheckInvariants()...)

	if !item.Rubric.FluencyExcluded {
		errors = append(errors, "LOCKED: rubric.fluency_excluded must be true")
	}
	if item.Scoring.MasteryGateThreshold != LockedMasteryGate {
		errors = append(errors, fmt.Sprintf(
			"LOCKED: mastery_gate_threshold must be %d, got %d",
			LockedMasteryGate, item.Scoring.MasteryGateThreshold))
	}

	if err := item.Candidates.CheckShape(); err != nil {
		errors = append(errors, err.Error())
	}

	// Diagram dependence and the best-of-two branch imply each other.
	if item.Extraction.DiagramDependent && item.Candidates.Type != types.GenerationBo2 {
		errors = append(errors, "diagram_dependent=true requires generation_type=Bo2")
	}
	if !item.Extraction.DiagramDependent && item.Candidates.Type == types.GenerationBo2 {
		errors = append(errors, "generation_type=Bo2 requires diagram_dependent=true")
	}

	switch item.ApprovalStatus {
	case types.StatusAwaitingHuman, types.StatusAutoApproved, types.StatusFailedAudit,
		types.StatusHumanApproved, types.StatusRejected:
	default:
		errors = append(errors, fmt.Sprintf("unknown approval_status %q", item.ApprovalStatus))
	}

	if item.Audit.Status == types.AuditUnknown {
		warnings = append(warnings, "audit status UNKNOWN: the audit collaborator errored for this record")
	}

	return Report{
		Valid:    len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
	}
}
