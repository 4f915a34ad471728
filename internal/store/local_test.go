package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"prism/internal/config"
	"prism/internal/types"
)

func newTestStore(t *testing.T) (*Local, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store.ItemsDir = filepath.Join(dir, "items")
	cfg.Store.ConvertedDir = filepath.Join(dir, "converted")
	cfg.Store.ReadyDir = filepath.Join(dir, "ready")
	cfg.Store.LogsDir = filepath.Join(dir, "logs")
	cfg.Readiness.AgreementMetricsPath = filepath.Join(dir, "logs", "agreement_metrics.json")
	return NewLocal(cfg, zap.NewNop()), dir
}

func writeItemFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func sampleRecord(id string, status types.ApprovalStatus) *types.ConvertedItem {
	return &types.ConvertedItem{
		SchemaVersion:  types.SchemaVersion,
		SourceID:       id,
		GeneratedAt:    time.Now().UTC(),
		ApprovalStatus: status,
		Candidates: types.GenerationDraft{
			Type: types.GenerationBo2,
			Bo2: &types.Bo2Payload{
				CandidateA: json.RawMessage(`{"stem":"A"}`),
				CandidateB: json.RawMessage(`{"stem":"B"}`),
			},
		},
	}
}

func TestLoadSourceItemsSortedAndFiltered(t *testing.T) {
	store, dir := newTestStore(t)
	items := filepath.Join(dir, "items")
	writeItemFile(t, items, "q2.json", `{"id": "q2", "question_text": "second"}`)
	writeItemFile(t, items, "q1.json", `{"id": "q1", "question_text": "first"}`)
	writeItemFile(t, items, "notes.txt", "not an item")

	loaded, err := store.LoadSourceItems("")
	if err != nil {
		t.Fatalf("LoadSourceItems: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d items, want 2", len(loaded))
	}
	if loaded[0].ID != "q1" || loaded[1].ID != "q2" {
		t.Errorf("items out of order: %s, %s", loaded[0].ID, loaded[1].ID)
	}

	filtered, err := store.LoadSourceItems("q2")
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].ID != "q2" {
		t.Errorf("filter returned %v", filtered)
	}
}

func TestLoadSourceItemsSkipsMalformed(t *testing.T) {
	store, dir := newTestStore(t)
	items := filepath.Join(dir, "items")
	writeItemFile(t, items, "bad.json", "{not json")
	writeItemFile(t, items, "good.json", `{"question_text": "ok"}`)

	loaded, err := store.LoadSourceItems("")
	if err != nil {
		t.Fatalf("LoadSourceItems: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d items, want 1", len(loaded))
	}
	// Missing id falls back to the file name.
	if loaded[0].ID != "good" {
		t.Errorf("id = %q, want filename fallback", loaded[0].ID)
	}
}

func TestLoadSourceItemsMissingDir(t *testing.T) {
	store, _ := newTestStore(t)
	loaded, err := store.LoadSourceItems("")
	if err != nil {
		t.Fatalf("missing items dir must not error, got %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded %d items from a missing dir", len(loaded))
	}
}

func TestWriteConvertedRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	record := sampleRecord("q1", types.StatusAwaitingHuman)

	if store.HasConverted("q1") {
		t.Fatal("HasConverted true before write")
	}
	path, err := store.WriteConverted(record)
	if err != nil {
		t.Fatalf("WriteConverted: %v", err)
	}
	if !strings.HasSuffix(path, "q1_converted.json") {
		t.Errorf("path = %q", path)
	}
	if !store.HasConverted("q1") {
		t.Error("HasConverted false after write")
	}

	loaded, err := store.LoadConverted("q1")
	if err != nil {
		t.Fatalf("LoadConverted: %v", err)
	}
	if loaded.ApprovalStatus != types.StatusAwaitingHuman {
		t.Errorf("status = %q", loaded.ApprovalStatus)
	}

	// The temp file used for the atomic write must not survive.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("stray temp file %s", e.Name())
		}
	}
}

func TestListPending(t *testing.T) {
	store, _ := newTestStore(t)
	for _, rec := range []*types.ConvertedItem{
		sampleRecord("b", types.StatusAwaitingHuman),
		sampleRecord("a", types.StatusAwaitingHuman),
		sampleRecord("c", types.StatusHumanApproved),
		sampleRecord("d", types.StatusFailedAudit),
	} {
		if _, err := store.WriteConverted(rec); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := store.ListPending()
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 || pending[0] != "a" || pending[1] != "b" {
		t.Errorf("pending = %v, want [a b]", pending)
	}
}

func TestCopyToReady(t *testing.T) {
	store, dir := newTestStore(t)
	record := sampleRecord("q1", types.StatusHumanApproved)

	path, err := store.CopyToReady(record)
	if err != nil {
		t.Fatalf("CopyToReady: %v", err)
	}
	want := filepath.Join(dir, "ready", "q1_approved.json")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("ready copy missing: %v", err)
	}
}

func TestBo2LogAppendAndRead(t *testing.T) {
	store, _ := newTestStore(t)

	for _, id := range []string{"q1", "q2"} {
		err := store.AppendBo2Log(types.Bo2LogEntry{
			EntryID: id + "-entry", ItemID: id,
			CandidateA: json.RawMessage(`{}`), CandidateB: json.RawMessage(`{}`),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.ReadBo2Log()
	if err != nil {
		t.Fatalf("ReadBo2Log: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("read %d entries, want 2", len(entries))
	}
	if entries[0].ItemID != "q1" || entries[1].ItemID != "q2" {
		t.Errorf("entries out of order: %s, %s", entries[0].ItemID, entries[1].ItemID)
	}
}

func TestReadBo2LogSkipsMalformedLines(t *testing.T) {
	store, dir := newTestStore(t)
	logPath := filepath.Join(dir, "logs", "bo2", "bo2_log.jsonl")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"item_id": "q1"}` + "\n" +
		"corrupted line\n" +
		`{"item_id": "q2"}` + "\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := store.ReadBo2Log()
	if err != nil {
		t.Fatalf("ReadBo2Log: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("read %d entries, want 2 with the corrupted line skipped", len(entries))
	}
}

func TestReadBo2LogMissingFile(t *testing.T) {
	store, _ := newTestStore(t)
	entries, err := store.ReadBo2Log()
	if err != nil {
		t.Fatalf("missing log must not error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("read %d entries from a missing log", len(entries))
	}
}

func TestUpdateBo2Validation(t *testing.T) {
	store, _ := newTestStore(t)
	for _, id := range []string{"q1", "q2", "q3"} {
		err := store.AppendBo2Log(types.Bo2LogEntry{
			ItemID:     id,
			CandidateA: json.RawMessage(`{"stem":"A"}`),
			CandidateB: json.RawMessage(`{"stem":"B"}`),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	validation := &types.HumanValidation{
		Choice: types.CandidateA, AlignmentPass: true, ValidatorID: "VAL-001",
	}
	pair := &types.TrainingPair{Prompt: "p", Chosen: "a", Rejected: "b"}
	if err := store.UpdateBo2Validation("q2", validation, pair); err != nil {
		t.Fatalf("UpdateBo2Validation: %v", err)
	}

	entries, err := store.ReadBo2Log()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("rewrite changed entry count to %d", len(entries))
	}
	if entries[0].Validation != nil || entries[2].Validation != nil {
		t.Error("validation attached to the wrong entries")
	}
	if entries[1].Validation == nil || entries[1].Validation.ValidatorID != "VAL-001" {
		t.Error("validation not attached to q2")
	}
	if entries[1].TrainingPair == nil || entries[1].TrainingPair.Prompt != "p" {
		t.Error("training pair not attached to q2")
	}
}

func TestUpdateBo2ValidationNoMatch(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.AppendBo2Log(types.Bo2LogEntry{ItemID: "q1"}); err != nil {
		t.Fatal(err)
	}

	err := store.UpdateBo2Validation("missing", &types.HumanValidation{ValidatorID: "VAL-001"}, nil)
	if err != nil {
		t.Fatalf("no-match update must not error, got %v", err)
	}

	entries, err := store.ReadBo2Log()
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Validation != nil {
		t.Error("unrelated entry was annotated")
	}
}

func TestDecisionLogAppendAndRead(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.AppendDecisionLog(types.DecisionLogEntry{
		EntryID: "e1", ItemID: "q1",
		Decision: types.ApprovalDecision{ItemID: "q1", Choice: types.CandidateA, ValidatorID: "VAL-001"},
	})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := store.ReadDecisionLog()
	if err != nil {
		t.Fatalf("ReadDecisionLog: %v", err)
	}
	if len(entries) != 1 || entries[0].Decision.ValidatorID != "VAL-001" {
		t.Errorf("entries = %v", entries)
	}
}

func TestRunLogDatedPath(t *testing.T) {
	store, dir := newTestStore(t)
	day := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	err := store.AppendRunLog(types.RunLogEntry{
		EntryID: "e1", Timestamp: day, ItemID: "q1", Status: types.RunSuccess,
	})
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(dir, "logs", "conversion", "2026-08-29_run.jsonl")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("dated run log missing at %s: %v", want, err)
	}
}
