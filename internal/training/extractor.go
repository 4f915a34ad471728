// Package training harvests preference-training pairs from resolved
// best-of-two decisions. A pair is emitted only when a candidate was chosen
// AND the alignment check on that decision passed; rejections and
// unaligned approvals are filtered out entirely, not downgraded to warnings.
package training

import (
	"encoding/json"
	"fmt"
	"strings"

	"prism/internal/types"
)

// buildPrompt reconstructs the generation context a preference model would
// be conditioned on.
func buildPrompt(itemID, seedConcept, diagramMechanism string,
	qMatrix map[string]types.Misconception, transferDomains []types.TransferDomain) string {

	if diagramMechanism == "" {
		diagramMechanism = "N/A"
	}
	qm, _ := json.Marshal(qMatrix)
	td, _ := json.Marshal(transferDomains)

	parts := []string{
		fmt.Sprintf("Item: %s", itemID),
		fmt.Sprintf("Core concept: %s", seedConcept),
		fmt.Sprintf("Diagram mechanism: %s", diagramMechanism),
		fmt.Sprintf("Q-Matrix: %s", qm),
		fmt.Sprintf("Transfer domains: %s", td),
	}
	return strings.Join(parts, "\n")
}

func pair(prompt string, payload *types.Bo2Payload, v *types.HumanValidation) *types.TrainingPair {
	winner := v.Choice
	return &types.TrainingPair{
		Prompt:            prompt,
		Chosen:            string(payload.Payload(winner)),
		Rejected:          string(payload.Payload(winner.Other())),
		ReasonCategory:    v.RejectionCategory,
		ReasonExplanation: v.RejectionExplanation,
	}
}

// FromEntry derives a training pair from one best-of-two log entry, or nil
// when the entry's decision does not qualify (no decision yet, rejection, or
// alignment failure).
func FromEntry(e *types.Bo2LogEntry) *types.TrainingPair {
	v := e.Validation
	if v == nil || v.Choice == "" || !v.AlignmentPass {
		return nil
	}

	payload := &types.Bo2Payload{
		CandidateA:         e.CandidateA,
		CandidateB:         e.CandidateB,
		OrthogonalityCheck: e.OrthogonalityCheck,
	}
	prompt := buildPrompt(e.ItemID, e.SeedConcept, e.DiagramMechanism, e.QMatrix, e.TransferDomains)
	return pair(prompt, payload, v)
}

// FromDecision derives a training pair inline at decision time, or nil when
// the decision does not qualify. The payloads are embedded serialized
// copies, so the pair stays valid even if the record is modified later.
func FromDecision(item *types.ConvertedItem, d *types.ApprovalDecision) *types.TrainingPair {
	if !d.Approves() || !d.AlignmentPass {
		return nil
	}
	if item.Candidates.Type != types.GenerationBo2 || item.Candidates.Bo2 == nil {
		return nil
	}

	prompt := buildPrompt(item.SourceID, item.Extraction.CoreConcept,
		item.Extraction.DiagramMechanism, item.Extraction.QMatrix, item.Extraction.TransferDomains)
	return pair(prompt, item.Candidates.Bo2, &types.HumanValidation{
		Choice:               d.Choice,
		AlignmentPass:        d.AlignmentPass,
		RejectionCategory:    d.RejectionCategory,
		RejectionExplanation: d.RejectionExplanation,
	})
}

// HarvestStats summarizes one batch sweep.
type HarvestStats struct {
	Processed        int
	Pairs            int
	SkippedNoChoice  int
	SkippedNoAlign   int
	SkippedUndecided int
}

// Harvest sweeps the full best-of-two log and returns the qualifying pairs,
// order-stable by input order. Re-running over the same log produces the
// same pairs.
func Harvest(entries []types.Bo2LogEntry) ([]types.TrainingPair, HarvestStats) {
	stats := HarvestStats{Processed: len(entries)}
	var pairs []types.TrainingPair
	for i := range entries {
		v := entries[i].Validation
		switch {
		case v == nil:
			stats.SkippedUndecided++
		case v.Choice == "":
			stats.SkippedNoChoice++
		case !v.AlignmentPass:
			stats.SkippedNoAlign++
		default:
			if p := FromEntry(&entries[i]); p != nil {
				pairs = append(pairs, *p)
			}
		}
	}
	stats.Pairs = len(pairs)
	return pairs, stats
}
