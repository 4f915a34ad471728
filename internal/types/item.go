// Package types provides shared type definitions used across prism packages.
// This package exists to break import cycles between the pipeline, store, and
// approval packages. Types here are foundational data structures with no
// complex dependencies.
package types

// =============================================================================
// SOURCE ITEM (pipeline input)
// =============================================================================

// DiagramDescriptor describes one diagram attached to a source item.
// Both descriptions are free text produced by the ingestion tooling.
type DiagramDescriptor struct {
	StructuredDescription string `json:"structured_description"`
	SemanticDescription   string `json:"semantic_description"`
}

// SourceItem is a raw assessment item as produced by the ingestion tooling.
// It is read-only to the pipeline: the sequencer never mutates a source item.
type SourceItem struct {
	ID             string              `json:"id"`
	PaperCode      string              `json:"paper_code"`
	QuestionNumber int                 `json:"question_number"`
	QuestionText   string              `json:"question_text"`
	Options        map[string]string   `json:"options"`
	CorrectAnswer  string              `json:"correct_answer"`
	Diagrams       []DiagramDescriptor `json:"diagrams,omitempty"`

	// PercentCorrect is the historical percent-correct statistic for the
	// item, when the exam board published one. Nil when unavailable; the
	// cold-start calibrator falls back to 50.
	PercentCorrect *float64 `json:"percent_correct,omitempty"`

	// ExaminerNotes carries examiner commentary on common errors.
	ExaminerNotes string `json:"examiner_notes,omitempty"`
}

// HasDiagrams reports whether the item carries any diagram descriptors.
func (s *SourceItem) HasDiagrams() bool {
	return len(s.Diagrams) > 0
}
