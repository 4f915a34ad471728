package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"prism/internal/types"
)

// =============================================================================
// STAGE PROMPTS
// =============================================================================
//
// The stage prompts are frozen: retuning them invalidates comparisons across
// generation runs, so changes belong in a new pipeline version.

const stage1System = `You are an expert psychometrician and cognitive scientist. Your task is to ` +
	`extract the Cognitive Q-Matrix from a seed multiple-choice question.

You will be provided with a JSON representing a test item.

INSTRUCTIONS:
1. Identify the Core Concept required to answer the question correctly.
2. Analyze the examiner commentary. For each incorrect option, extract the specific ` +
	`"Misconception Attribute" (M1, M2, etc.).
3. If frequency data is missing for any option, ignore the frequency and rely ` +
	`entirely on the misconception text.
4. Determine if the misconception attributes have a natural ordinal ranking. ` +
	`Set misconception_ordering accordingly.
5. If the seed item contains diagrams, parse the structured and semantic ` +
	`descriptions. The Core Concept extraction MUST incorporate the visual/spatial mechanism.
6. Generate 3 transfer domain seeds - each must be a structurally different domain ` +
	`where the identical underlying mechanism applies.

OUTPUT FORMAT (strict JSON):
{
  "core_concept": "...",
  "mastery_logic": "...",
  "diagram_dependent": true | false,
  "diagram_mechanism": "... or null",
  "misconception_ordering": "ordered" | "unordered",
  "response_model": "GPCM" | "NRM",
  "q_matrix": { "M1": { "option": "A", "description": "..." } },
  "transfer_domains": [ { "domain": "...", "seed": "...", "preserves_mechanism": "..." } ]
}`

const stage2SingleSystem = `You are an expert assessment developer. Using the provided Q-Matrix and Core Concept, ` +
	`generate a Concept Probe and a Far-Transfer Check.

PROBE RULES:
- De-contextualize completely from the seed item.
- Each distractor maps to exactly one misconception in the Q-matrix.
- Include final option: "I am not sure" tagged as routing_LoK.

TRANSFER RULES:
- Use one of the provided transfer_domains.
- Surface features must share ZERO nouns or scenarios with the seed or the probe.
- Do NOT include an "I don't know" option.

Output strict JSON with "probe" and "transfer" fields.`

const stage2Bo2System = `You are an expert assessment developer. You will generate TWO diagnostic item ` +
	`candidates (each a Concept Probe plus a Far-Transfer Check), using TWO MANDATORY ORTHOGONAL PATHWAYS.

CANDIDATE A: TEXT-ABSTRACTION - Strip ALL visual/spatial elements. Construct ` +
	`PURELY TEXTUAL items.
CANDIDATE B: SCHEMA-MUTATION - Generate a NEW diagram scenario preserving the identical ` +
	`mechanism but MUTATING visual elements.

RULES:
- Probe distractors MUST map to exactly the Q-matrix misconceptions.
- The probe MUST include "I am not sure" tagged as routing_LoK.
- The transfer check must NOT include an "I don't know" option.
- The correct answer must NOT be identifiable by elimination.

Output strict JSON with "candidate_a", "candidate_b", and "orthogonality_check" fields.`

const stage3System = `You are a Psychometric Auditor. Audit proposed diagnostic items against ` +
	`IRT constraints. Apply ALL FIVE criteria:
1. DIAGNOSTIC PURITY - Does choosing Distractor X strictly require Misconception X?
2. IRT DISCRIMINATION - Is the correct answer too obvious?
3. TRANSFER DISTANCE - Is the transfer context genuinely novel?
4. CONSTRUCT PURITY - Could a student fail due to construct-irrelevant factors?
5. PATHWAY ORTHOGONALITY (best-of-two only) - Are A and B fundamentally different?

Output strict JSON: {"status": "APPROVED" | "REJECTED", "critical_feedback": "...", "evaluation": {...}}`

// -----------------------------------------------------------------------------
// User prompt builders
// -----------------------------------------------------------------------------

func buildStage1Prompt(item *types.SourceItem) string {
	seed, _ := json.MarshalIndent(item, "", "  ")
	return fmt.Sprintf("SEED ITEM JSON:\n%s", seed)
}

func buildStage2Prompt(item *types.SourceItem, ex *types.ExtractionResult, bo2 bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SEED ITEM TEXT: %s\n", item.QuestionText)
	if bo2 {
		diagrams, _ := json.MarshalIndent(item.Diagrams, "", "  ")
		fmt.Fprintf(&sb, "SEED ITEM DIAGRAMS: %s\n", diagrams)
	}
	qm, _ := json.MarshalIndent(ex.QMatrix, "", "  ")
	td, _ := json.MarshalIndent(ex.TransferDomains, "", "  ")
	fmt.Fprintf(&sb, "Q-MATRIX JSON: %s\n", qm)
	fmt.Fprintf(&sb, "TRANSFER DOMAINS: %s", td)
	return sb.String()
}

func buildRetryPrompt(item *types.SourceItem, ex *types.ExtractionResult, draft *types.GenerationDraft, feedback string) string {
	var sb strings.Builder
	sb.WriteString(buildStage2Prompt(item, ex, draft.Type == types.GenerationBo2))

	previous, _ := json.MarshalIndent(draftBody(draft), "", "  ")
	fmt.Fprintf(&sb, "\n\nPREVIOUS DRAFT (REJECTED):\n%s", previous)
	fmt.Fprintf(&sb, "\n\nAUDIT FEEDBACK:\n%s", feedback)
	sb.WriteString("\n\nGenerate an IMPROVED version addressing the feedback above.")
	return sb.String()
}

func buildStage3Prompt(item *types.SourceItem, ex *types.ExtractionResult, draft *types.GenerationDraft) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ORIGINAL SEED QUESTION: %s\n", item.QuestionText)
	qm, _ := json.MarshalIndent(ex.QMatrix, "", "  ")
	fmt.Fprintf(&sb, "Q-MATRIX: %s\n", qm)
	body, _ := json.MarshalIndent(draftBody(draft), "", "  ")
	fmt.Fprintf(&sb, "PROPOSED ITEMS: %s\n", body)
	fmt.Fprintf(&sb, "IS_BEST_OF_TWO: %t", draft.Type == types.GenerationBo2)
	return sb.String()
}

// draftBody returns the branch payload carried by the draft.
func draftBody(d *types.GenerationDraft) any {
	if d.Type == types.GenerationBo2 {
		return d.Bo2
	}
	return d.Single
}
