package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"prism/internal/types"
)

// scriptedClient returns canned completions in order and records prompts.
type scriptedClient struct {
	responses []string
	err       error

	systems []string
	users   []string
}

func (c *scriptedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.systems = append(c.systems, systemPrompt)
	c.users = append(c.users, userPrompt)
	if c.err != nil {
		return "", c.err
	}
	idx := len(c.users) - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], nil
}

func (c *scriptedClient) Model() string { return "scripted" }

const extractionFixture = `{
	"core_concept": "series circuits",
	"mastery_logic": "current is equal at every point in a series loop",
	"diagram_dependent": true,
	"diagram_mechanism": "current readings shown on two ammeters",
	"misconception_ordering": "unordered",
	"response_model": "NRM",
	"q_matrix": {
		"m1": {"option": "B", "description": "believes current is used up by components"},
		"m2": {"option": "D", "description": "adds ammeter readings"}
	},
	"transfer_domains": [
		{"domain": "plumbing", "seed": "water flow in a single pipe", "preserves_mechanism": "conserved flow"},
		{"domain": "traffic", "seed": "cars on a one-lane road", "preserves_mechanism": "conserved flow"},
		{"domain": "assembly line", "seed": "items on a belt", "preserves_mechanism": "conserved flow"}
	]
}`

func testItem() *types.SourceItem {
	return &types.SourceItem{
		ID:            "q1",
		QuestionText:  "Two ammeters are placed in a series circuit...",
		Options:       map[string]string{"A": "equal", "B": "less", "C": "more", "D": "sum"},
		CorrectAnswer: "A",
	}
}

func TestExtractParsesCompletion(t *testing.T) {
	client := &scriptedClient{responses: []string{"```json\n" + extractionFixture + "\n```"}}
	svc := NewService(client, nil)

	result, err := svc.Extract(context.Background(), testItem())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.CoreConcept != "series circuits" {
		t.Errorf("core concept = %q", result.CoreConcept)
	}
	if !result.DiagramDependent {
		t.Error("diagram_dependent not parsed")
	}
	if len(result.QMatrix) != 2 {
		t.Errorf("q_matrix entries = %d, want 2", len(result.QMatrix))
	}
	if len(result.TransferDomains) != 3 {
		t.Errorf("transfer domains = %d, want 3", len(result.TransferDomains))
	}
	if problems := result.CheckInvariants(); len(problems) != 0 {
		t.Errorf("unexpected invariant problems: %v", problems)
	}
}

func TestExtractMalformedCompletion(t *testing.T) {
	client := &scriptedClient{responses: []string{"I could not produce JSON for this item."}}
	svc := NewService(client, nil)

	if _, err := svc.Extract(context.Background(), testItem()); err == nil {
		t.Fatal("want error for a completion with no JSON object")
	}
}

func TestExtractCallError(t *testing.T) {
	client := &scriptedClient{err: errors.New("boom")}
	svc := NewService(client, nil)

	if _, err := svc.Extract(context.Background(), testItem()); err == nil {
		t.Fatal("want error when the provider call fails")
	}
}

func TestGenerateSingle(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"probe": {"stem": "probe question"}, "transfer": {"stem": "transfer question"}}`,
	}}
	svc := NewService(client, nil)

	var ex types.ExtractionResult
	if err := decodeResponse(extractionFixture, &ex); err != nil {
		t.Fatal(err)
	}

	draft, err := svc.GenerateSingle(context.Background(), testItem(), &ex)
	if err != nil {
		t.Fatalf("GenerateSingle: %v", err)
	}
	if draft.Type != types.GenerationSingle {
		t.Errorf("type = %q", draft.Type)
	}
	if draft.Single == nil || len(draft.Single.Probe) == 0 {
		t.Fatal("probe payload missing")
	}
}

func TestGenerateBo2RequiresBothCandidates(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"candidate_a": {"stem": "only one"}, "orthogonality_check": "n/a"}`,
	}}
	svc := NewService(client, nil)

	var ex types.ExtractionResult
	if err := decodeResponse(extractionFixture, &ex); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GenerateBo2(context.Background(), testItem(), &ex); err == nil {
		t.Fatal("want error when a candidate payload is missing")
	}
}

func TestRegenerateKeepsBranch(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"candidate_a": {"stem": "A2"}, "candidate_b": {"stem": "B2"}, "orthogonality_check": "distinct"}`,
	}}
	svc := NewService(client, nil)

	var ex types.ExtractionResult
	if err := decodeResponse(extractionFixture, &ex); err != nil {
		t.Fatal(err)
	}

	rejected := &types.GenerationDraft{
		Type: types.GenerationBo2,
		Bo2: &types.Bo2Payload{
			CandidateA: []byte(`{"stem": "A1"}`),
			CandidateB: []byte(`{"stem": "B1"}`),
		},
	}

	draft, err := svc.Regenerate(context.Background(), testItem(), &ex, rejected, "candidate B is trivial")
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if draft.Type != types.GenerationBo2 {
		t.Errorf("regeneration switched branch to %q", draft.Type)
	}
	if len(client.users) != 1 || !strings.Contains(client.users[0], "candidate B is trivial") {
		t.Error("audit feedback not threaded into the retry prompt")
	}
}

func TestAuditVerdicts(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     types.AuditStatus
	}{
		{"approved", `{"status": "APPROVED", "evaluation": {}}`, types.AuditApproved},
		{"rejected", `{"status": "REJECTED", "critical_feedback": "stem leaks the answer"}`, types.AuditRejected},
		{"lowercase normalized", `{"status": "approved"}`, types.AuditApproved},
		{"unexpected treated as rejection", `{"status": "MAYBE"}`, types.AuditRejected},
	}

	var ex types.ExtractionResult
	if err := decodeResponse(extractionFixture, &ex); err != nil {
		t.Fatal(err)
	}
	draft := &types.GenerationDraft{
		Type:   types.GenerationSingle,
		Single: &types.SinglePayload{Probe: []byte(`{}`), Transfer: []byte(`{}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &scriptedClient{responses: []string{tc.response}}
			svc := NewService(client, nil)

			result, err := svc.Audit(context.Background(), testItem(), &ex, draft)
			if err != nil {
				t.Fatalf("Audit: %v", err)
			}
			if result.Status != tc.want {
				t.Errorf("status = %q, want %q", result.Status, tc.want)
			}
		})
	}
}

func TestAuditFeedbackSurfaced(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"status": "REJECTED", "critical_feedback": "distractors are not diagnostic"}`,
	}}
	svc := NewService(client, nil)

	var ex types.ExtractionResult
	if err := decodeResponse(extractionFixture, &ex); err != nil {
		t.Fatal(err)
	}
	draft := &types.GenerationDraft{
		Type:   types.GenerationSingle,
		Single: &types.SinglePayload{Probe: []byte(`{}`), Transfer: []byte(`{}`)},
	}

	result, err := svc.Audit(context.Background(), testItem(), &ex, draft)
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if result.Feedback != "distractors are not diagnostic" {
		t.Errorf("feedback = %q", result.Feedback)
	}
}
