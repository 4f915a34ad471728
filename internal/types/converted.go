package types

import (
	"encoding/json"
	"time"
)

// =============================================================================
// STAGE 3 OUTPUT + CONVERTED ITEM (the durable record)
// =============================================================================

// AuditStatus is the Stage 3 verdict on a draft.
type AuditStatus string

const (
	AuditApproved AuditStatus = "APPROVED"
	AuditRejected AuditStatus = "REJECTED"

	// AuditUnknown marks a record whose audit call errored outright, as
	// opposed to returning a REJECTED verdict. Kept distinct so downstream
	// consumers never mistake an infrastructure failure for a judgment.
	AuditUnknown AuditStatus = "UNKNOWN"
)

// AuditResult is the final audit outcome persisted with a converted item.
// Intermediate per-retry audits are transient; only the last one survives.
type AuditResult struct {
	Status     AuditStatus     `json:"status"`
	Feedback   string          `json:"feedback,omitempty"`
	Evaluation json.RawMessage `json:"evaluation_details,omitempty"`
	Retries    int             `json:"retries"`
}

// ApprovalStatus is the lifecycle status of a converted item.
type ApprovalStatus string

const (
	// StatusAwaitingHuman - Bo2 item waiting for a validator to arbitrate.
	StatusAwaitingHuman ApprovalStatus = "awaiting_human_validation"
	// StatusAutoApproved - single-branch item whose final audit passed.
	StatusAutoApproved ApprovalStatus = "auto_approved"
	// StatusFailedAudit - single-branch item whose audit never passed. Terminal.
	StatusFailedAudit ApprovalStatus = "failed_audit"
	// StatusHumanApproved - a validator selected one of the Bo2 candidates.
	StatusHumanApproved ApprovalStatus = "human_approved"
	// StatusRejected - a validator rejected both Bo2 candidates.
	StatusRejected ApprovalStatus = "rejected"
)

// AcceptsDecision reports whether an item in this status may still receive a
// human approval decision.
func (s ApprovalStatus) AcceptsDecision() bool {
	return s == StatusAwaitingHuman
}

// ScoringRubric is the concept-presence-only rubric derived from Stage 1.
// Fluency is always excluded from scoring; the validator treats any other
// value as an invariant violation.
type ScoringRubric struct {
	ScoringModel     string   `json:"scoring_model"`
	CorrectConcepts  []string `json:"correct_concepts"`
	CorrectMechanism string   `json:"correct_mechanism"`
	FluencyExcluded  bool     `json:"fluency_excluded"`
}

// ScoringConfig is the fixed scoring configuration for converted items.
type ScoringConfig struct {
	JointScoreScale      []int  `json:"joint_score_scale"`
	MasteryGateThreshold int    `json:"mastery_gate_threshold"`
	ResponseModel        string `json:"response_model"`
	RoutingLoKEnabled    bool   `json:"routing_lok_enabled"`
}

// CalibrationParams seeds the downstream item-response model before any
// response data exists. Computed once by the cold-start calibrator and never
// recomputed by this pipeline.
type CalibrationParams struct {
	Phase string `json:"calibration_phase"`

	// Alpha is the fixed discrimination slope.
	Alpha float64 `json:"alpha"`
	// Beta is the difficulty estimate derived from percent correct.
	Beta float64 `json:"beta"`
	// StepOffsets are the fixed category step offsets.
	StepOffsets []float64 `json:"step_offsets"`

	ResponseCount int `json:"n_responses"`
}

// HumanValidation records the human decision attached to a converted item.
// Immutable once written.
type HumanValidation struct {
	Choice               Candidate         `json:"human_choice,omitempty"`
	AlignmentPass        bool              `json:"alignment_pass"`
	AlignmentNotes       string            `json:"alignment_notes,omitempty"`
	RejectionCategory    RejectionCategory `json:"rejection_category,omitempty"`
	RejectionExplanation string            `json:"rejection_explanation,omitempty"`
	ValidatorID          string            `json:"validator_id"`
	Timestamp            time.Time         `json:"validation_timestamp"`
}

// SchemaVersion identifies the converted-item record layout.
const SchemaVersion = "1.0"

// ConvertedItem is the durable output of the pipeline for one source item.
// Created once the audit-retry loop terminates; mutated only by the approval
// state machine afterwards; never deleted, only superseded by a new status.
type ConvertedItem struct {
	SchemaVersion string    `json:"schema_version"`
	SourceID      string    `json:"source_id"`
	SourceFile    string    `json:"source_file,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`

	ApprovalStatus ApprovalStatus `json:"approval_status"`

	Extraction  ExtractionResult  `json:"extraction"`
	Rubric      ScoringRubric     `json:"rubric"`
	Scoring     ScoringConfig     `json:"scoring"`
	Candidates  GenerationDraft   `json:"candidates"`
	Audit       AuditResult       `json:"audit"`
	Calibration CalibrationParams `json:"calibration"`

	Validation *HumanValidation `json:"human_validation,omitempty"`
}
