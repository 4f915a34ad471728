package types

import (
	"encoding/json"
	"testing"
)

func TestCandidateOther(t *testing.T) {
	if CandidateA.Other() != CandidateB {
		t.Error("A.Other() != B")
	}
	if CandidateB.Other() != CandidateA {
		t.Error("B.Other() != A")
	}
}

func TestCandidateValid(t *testing.T) {
	if !CandidateA.Valid() || !CandidateB.Valid() {
		t.Error("known candidates reported invalid")
	}
	if Candidate("C").Valid() || Candidate("").Valid() {
		t.Error("unknown candidate reported valid")
	}
}

func TestDraftCheckShape(t *testing.T) {
	single := &SinglePayload{Probe: json.RawMessage(`{}`), Transfer: json.RawMessage(`{}`)}
	bo2 := &Bo2Payload{CandidateA: json.RawMessage(`{}`), CandidateB: json.RawMessage(`{}`)}

	cases := []struct {
		name    string
		draft   GenerationDraft
		wantErr bool
	}{
		{"single ok", GenerationDraft{Type: GenerationSingle, Single: single}, false},
		{"bo2 ok", GenerationDraft{Type: GenerationBo2, Bo2: bo2}, false},
		{"single missing payload", GenerationDraft{Type: GenerationSingle}, true},
		{"single with bo2 payload", GenerationDraft{Type: GenerationSingle, Single: single, Bo2: bo2}, true},
		{"bo2 missing payload", GenerationDraft{Type: GenerationBo2}, true},
		{"bo2 missing candidate", GenerationDraft{Type: GenerationBo2, Bo2: &Bo2Payload{CandidateA: json.RawMessage(`{}`)}}, true},
		{"unknown type", GenerationDraft{Type: "Triple"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.CheckShape()
			if (err != nil) != tc.wantErr {
				t.Errorf("CheckShape() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestBo2PayloadSelection(t *testing.T) {
	p := &Bo2Payload{
		CandidateA: json.RawMessage(`{"a":1}`),
		CandidateB: json.RawMessage(`{"b":2}`),
	}
	if string(p.Payload(CandidateA)) != `{"a":1}` {
		t.Error("Payload(A) wrong")
	}
	if string(p.Payload(CandidateB)) != `{"b":2}` {
		t.Error("Payload(B) wrong")
	}
}

func TestApprovalStatusAcceptsDecision(t *testing.T) {
	if !StatusAwaitingHuman.AcceptsDecision() {
		t.Error("awaiting_human_validation must accept decisions")
	}
	for _, s := range []ApprovalStatus{StatusAutoApproved, StatusFailedAudit, StatusHumanApproved, StatusRejected} {
		if s.AcceptsDecision() {
			t.Errorf("%s must not accept decisions", s)
		}
	}
}

func TestRejectionCategoryClosedSet(t *testing.T) {
	for _, c := range RejectionCategories {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if RejectionCategory("Gut_Feeling").Valid() {
		t.Error("unknown category accepted")
	}
}

func TestExtractionCheckInvariants(t *testing.T) {
	ex := ExtractionResult{
		QMatrix: map[string]Misconception{
			"m1": {Option: "A"},
			"m2": {Option: "B"},
		},
		TransferDomains: []TransferDomain{{}, {}, {}},
	}
	if problems := ex.CheckInvariants(); len(problems) != 0 {
		t.Errorf("valid extraction flagged: %v", problems)
	}

	ex.QMatrix = map[string]Misconception{"m1": {Option: "A"}}
	ex.TransferDomains = ex.TransferDomains[:1]
	if problems := ex.CheckInvariants(); len(problems) != 2 {
		t.Errorf("problems = %v, want both invariants flagged", problems)
	}
}
