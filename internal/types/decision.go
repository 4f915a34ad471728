package types

import "time"

// =============================================================================
// APPROVAL DECISION
// =============================================================================

// RejectionCategory is the closed set of reasons a validator may reject both
// Bo2 candidates.
type RejectionCategory string

const (
	RejectConstructViolation RejectionCategory = "Construct_Violation"
	RejectDependencyFailure  RejectionCategory = "Dependency_Failure"
	RejectScaleMisfit        RejectionCategory = "Scale_Misfit"
	RejectOther              RejectionCategory = "Other"
)

// RejectionCategories lists the closed set in presentation order.
var RejectionCategories = []RejectionCategory{
	RejectConstructViolation,
	RejectDependencyFailure,
	RejectScaleMisfit,
	RejectOther,
}

// Valid reports whether c is a member of the closed set.
func (c RejectionCategory) Valid() bool {
	for _, known := range RejectionCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ApprovalDecision is a human (or automated) judgment on a Bo2 item.
// Choice empty denotes rejection of both candidates, in which case a
// rejection category and explanation are mandatory. Immutable once written.
type ApprovalDecision struct {
	ItemID string `json:"item_id"`

	Choice         Candidate `json:"human_choice,omitempty"`
	AlignmentPass  bool      `json:"alignment_pass"`
	AlignmentNotes string    `json:"alignment_notes,omitempty"`

	RejectionCategory    RejectionCategory `json:"rejection_category,omitempty"`
	RejectionExplanation string            `json:"rejection_explanation,omitempty"`

	ValidatorID string    `json:"validator_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// Approves reports whether the decision selected a candidate.
func (d *ApprovalDecision) Approves() bool {
	return d.Choice != ""
}
