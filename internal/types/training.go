package types

// =============================================================================
// TRAINING PAIR
// =============================================================================

// TrainingPair is one preference-training example harvested from a resolved
// human decision: the full serialized winning and losing candidate payloads,
// not references, so the pair stays valid if the source record changes later.
type TrainingPair struct {
	Prompt   string `json:"prompt"`
	Chosen   string `json:"chosen"`
	Rejected string `json:"rejected"`

	ReasonCategory    RejectionCategory `json:"reason_category,omitempty"`
	ReasonExplanation string            `json:"reason_text,omitempty"`
}
