package types

import (
	"encoding/json"
	"time"
)

// =============================================================================
// NDJSON LOG ENTRIES
// =============================================================================

// RunStatus classifies the outcome of one sequencer run over one item.
type RunStatus string

const (
	RunSuccess      RunStatus = "success"
	RunStage1Failed RunStatus = "stage1_failed"
	RunStage2Failed RunStatus = "stage2_failed"
	RunDryRun       RunStatus = "dry_run"
)

// RunLogEntry is one line of the generation run log.
type RunLogEntry struct {
	EntryID   string    `json:"entry_id"`
	Timestamp time.Time `json:"timestamp"`
	ItemID    string    `json:"item_id"`
	Status    RunStatus `json:"status"`

	DiagramDependent bool           `json:"diagram_dependent,omitempty"`
	GenerationType   GenerationType `json:"generation_type,omitempty"`
	AuditStatus      AuditStatus    `json:"audit_status,omitempty"`
	Retries          int            `json:"retries,omitempty"`
	OutputFile       string         `json:"output_file,omitempty"`

	GeneratorModel string `json:"generator_model,omitempty"`
	AuditModel     string `json:"audit_model,omitempty"`
}

// Bo2LogEntry is one line of the best-of-two generation log. It snapshots
// everything a later preference-pair harvest needs, and is updated in place
// once a human decision lands.
type Bo2LogEntry struct {
	EntryID   string    `json:"entry_id"`
	Timestamp time.Time `json:"generation_timestamp"`
	ItemID    string    `json:"item_id"`

	SeedConcept      string `json:"seed_concept"`
	DiagramMechanism string `json:"diagram_mechanism,omitempty"`

	QMatrix               map[string]Misconception `json:"q_matrix"`
	TransferDomains       []TransferDomain         `json:"transfer_domains"`
	MisconceptionOrdering MisconceptionOrdering    `json:"misconception_ordering"`
	ResponseModel         string                   `json:"response_model"`

	CandidateA         json.RawMessage `json:"candidate_a"`
	CandidateB         json.RawMessage `json:"candidate_b"`
	OrthogonalityCheck string          `json:"orthogonality_check"`

	AuditStatus AuditStatus `json:"audit_status"`
	Retries     int         `json:"retries"`

	Validation   *HumanValidation `json:"human_validation,omitempty"`
	TrainingPair *TrainingPair    `json:"training_pair,omitempty"`

	GeneratorModel string `json:"generator_model,omitempty"`
	AuditModel     string `json:"audit_model,omitempty"`
}

// DecisionLogEntry is one line of the approval decision log. Written after
// the item record update so that pending work can be re-derived from the
// absence of a matching log line if the process dies between the two writes.
type DecisionLogEntry struct {
	EntryID   string           `json:"entry_id"`
	Timestamp time.Time        `json:"timestamp"`
	ItemID    string           `json:"item_id"`
	Decision  ApprovalDecision `json:"decision"`

	PairDerived bool   `json:"pair_derived"`
	OutputFile  string `json:"output_file,omitempty"`
}
