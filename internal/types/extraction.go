package types

import "fmt"

// =============================================================================
// STAGE 1 OUTPUT - Q-MATRIX EXTRACTION
// =============================================================================

// MisconceptionOrdering classifies whether the misconception attributes of an
// item have a natural ordinal ranking.
type MisconceptionOrdering string

const (
	OrderingOrdered   MisconceptionOrdering = "ordered"
	OrderingUnordered MisconceptionOrdering = "unordered"
)

// Misconception is one entry in the Q-matrix: the answer option a
// misconception manifests as, plus a description of the misconception itself.
type Misconception struct {
	Option      string `json:"option"`
	Description string `json:"description"`
}

// TransferDomain is an alternate context that preserves the underlying
// mechanism of the seed item, used to test generalization.
type TransferDomain struct {
	Domain             string `json:"domain"`
	Seed               string `json:"seed"`
	PreservesMechanism string `json:"preserves_mechanism"`
}

// ExtractionResult is the Stage 1 output: the cognitive model of the seed
// item that all downstream generation is conditioned on.
type ExtractionResult struct {
	CoreConcept  string `json:"core_concept"`
	MasteryLogic string `json:"mastery_logic"`

	// DiagramDependent deterministically selects the generation branch:
	// true routes the item through best-of-two generation.
	DiagramDependent bool   `json:"diagram_dependent"`
	DiagramMechanism string `json:"diagram_mechanism,omitempty"`

	MisconceptionOrdering MisconceptionOrdering `json:"misconception_ordering"`

	// ResponseModel tags which polytomous IRT model phase-2 calibration
	// should use for this item (GPCM for ordered attributes, NRM otherwise).
	ResponseModel string `json:"response_model"`

	QMatrix         map[string]Misconception `json:"q_matrix"`
	TransferDomains []TransferDomain         `json:"transfer_domains"`
}

// MinQMatrixEntries is the minimum number of misconception entries a usable
// extraction must carry.
const MinQMatrixEntries = 2

// RequiredTransferDomains is the exact number of transfer domain seeds a
// usable extraction must carry.
const RequiredTransferDomains = 3

// CheckInvariants reports the structural problems of an extraction result.
// An empty slice means the extraction satisfies the Stage 1 contract.
func (e *ExtractionResult) CheckInvariants() []string {
	var problems []string
	if len(e.QMatrix) < MinQMatrixEntries {
		problems = append(problems, fmt.Sprintf(
			"q_matrix must have at least %d misconception entries, got %d",
			MinQMatrixEntries, len(e.QMatrix)))
	}
	if len(e.TransferDomains) != RequiredTransferDomains {
		problems = append(problems, fmt.Sprintf(
			"transfer_domains must have exactly %d entries, got %d",
			RequiredTransferDomains, len(e.TransferDomains)))
	}
	return problems
}
