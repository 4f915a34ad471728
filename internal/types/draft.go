package types

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// STAGE 2 OUTPUT - GENERATION DRAFT (tagged variant)
// =============================================================================

// GenerationType discriminates the two generation branches.
type GenerationType string

const (
	// GenerationSingle produces one probe/transfer payload, audited and
	// dispositioned automatically.
	GenerationSingle GenerationType = "Single"

	// GenerationBo2 produces two structurally orthogonal candidate payloads
	// that a human validator must arbitrate between.
	GenerationBo2 GenerationType = "Bo2"
)

// Candidate identifies one of the two Bo2 candidates.
type Candidate string

const (
	CandidateA Candidate = "A"
	CandidateB Candidate = "B"
)

// Other returns the opposing candidate.
func (c Candidate) Other() Candidate {
	if c == CandidateA {
		return CandidateB
	}
	return CandidateA
}

// Valid reports whether c is one of the two known candidates.
func (c Candidate) Valid() bool {
	return c == CandidateA || c == CandidateB
}

// SinglePayload is the single-branch draft: one concept probe plus one
// far-transfer item. The item bodies are model output and kept opaque.
type SinglePayload struct {
	Probe    json.RawMessage `json:"probe"`
	Transfer json.RawMessage `json:"transfer"`
}

// Bo2Payload is the best-of-two draft: two independently generated candidate
// payloads plus the model's rationale that they are orthogonal.
type Bo2Payload struct {
	CandidateA         json.RawMessage `json:"candidate_a"`
	CandidateB         json.RawMessage `json:"candidate_b"`
	OrthogonalityCheck string          `json:"orthogonality_check"`
}

// Payload returns the payload of the named candidate.
func (p *Bo2Payload) Payload(c Candidate) json.RawMessage {
	if c == CandidateA {
		return p.CandidateA
	}
	return p.CandidateB
}

// GenerationDraft is the tagged union of the two branch payloads. Exactly one
// of Single/Bo2 is set, matching Type.
type GenerationDraft struct {
	Type   GenerationType `json:"generation_type"`
	Single *SinglePayload `json:"single,omitempty"`
	Bo2    *Bo2Payload    `json:"bo2,omitempty"`

	// SelectedCandidate is filled by the approval state machine once a human
	// has chosen between Bo2 candidates. Empty otherwise.
	SelectedCandidate Candidate `json:"selected_candidate,omitempty"`
}

// CheckShape verifies the variant tag matches the populated payload.
func (d *GenerationDraft) CheckShape() error {
	switch d.Type {
	case GenerationSingle:
		if d.Single == nil || d.Bo2 != nil {
			return fmt.Errorf("generation_type=Single requires exactly the single payload")
		}
	case GenerationBo2:
		if d.Bo2 == nil || d.Single != nil {
			return fmt.Errorf("generation_type=Bo2 requires exactly the bo2 payload")
		}
		if len(d.Bo2.CandidateA) == 0 || len(d.Bo2.CandidateB) == 0 {
			return fmt.Errorf("Bo2 drafts must carry both candidate payloads")
		}
	default:
		return fmt.Errorf("unknown generation_type %q", d.Type)
	}
	return nil
}
