// Package store provides the durable file stores for the conversion
// pipeline: source item enumeration, converted item records written with an
// atomic temp-and-rename, ready-dir copies of approved items, and the
// append-only NDJSON run, best-of-two, and decision logs.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"prism/internal/config"
	"prism/internal/types"
)

// Local is a filesystem-backed store rooted at the configured directories.
// Single-writer: concurrent pipeline instances are not coordinated here.
type Local struct {
	itemsDir     string
	convertedDir string
	readyDir     string

	runLogPath      func(time.Time) string
	bo2LogPath      string
	decisionLogPath string

	logger *zap.Logger
}

// NewLocal creates a local store from configuration.
func NewLocal(cfg *config.Config, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{
		itemsDir:        cfg.Store.ItemsDir,
		convertedDir:    cfg.Store.ConvertedDir,
		readyDir:        cfg.Store.ReadyDir,
		runLogPath:      cfg.RunLogPath,
		bo2LogPath:      cfg.Bo2LogPath(),
		decisionLogPath: cfg.DecisionLogPath(),
		logger:          logger,
	}
}

// -----------------------------------------------------------------------------
// Source items
// -----------------------------------------------------------------------------

// LoadSourceItems enumerates the source item files in sorted order,
// optionally filtered to one item ID. Unreadable files are skipped with a
// warning so one bad input cannot stall the batch.
func (l *Local) LoadSourceItems(itemFilter string) ([]*types.SourceItem, error) {
	var paths []string
	err := filepath.WalkDir(l.itemsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to enumerate items: %w", err)
	}
	sort.Strings(paths)

	var items []*types.SourceItem
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("unreadable source item, skipping", zap.String("path", path), zap.Error(err))
			continue
		}
		var item types.SourceItem
		if err := json.Unmarshal(data, &item); err != nil {
			l.logger.Warn("malformed source item, skipping", zap.String("path", path), zap.Error(err))
			continue
		}
		if item.ID == "" {
			item.ID = strings.TrimSuffix(filepath.Base(path), ".json")
		}
		if itemFilter != "" && item.ID != itemFilter {
			continue
		}
		items = append(items, &item)
	}
	return items, nil
}

// -----------------------------------------------------------------------------
// Converted items
// -----------------------------------------------------------------------------

func (l *Local) convertedPath(itemID string) string {
	return filepath.Join(l.convertedDir, itemID+"_converted.json")
}

// HasConverted reports whether a converted record already exists for the
// item. Backs the sequencer's idempotent skip.
func (l *Local) HasConverted(itemID string) bool {
	_, err := os.Stat(l.convertedPath(itemID))
	return err == nil
}

// WriteConverted persists a converted item record atomically and returns the
// final path.
func (l *Local) WriteConverted(item *types.ConvertedItem) (string, error) {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal converted item: %w", err)
	}

	path := l.convertedPath(item.SourceID)
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// LoadConverted reads one converted item record.
func (l *Local) LoadConverted(itemID string) (*types.ConvertedItem, error) {
	data, err := os.ReadFile(l.convertedPath(itemID))
	if err != nil {
		return nil, fmt.Errorf("failed to read converted item: %w", err)
	}
	var item types.ConvertedItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to parse converted item: %w", err)
	}
	return &item, nil
}

// ListPending returns the IDs of items awaiting human validation, sorted.
func (l *Local) ListPending() ([]string, error) {
	entries, err := os.ReadDir(l.convertedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read converted dir: %w", err)
	}

	var pending []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, "_converted.json") {
			continue
		}
		itemID := strings.TrimSuffix(name, "_converted.json")
		item, err := l.LoadConverted(itemID)
		if err != nil {
			l.logger.Warn("unreadable converted item, skipping", zap.String("item", itemID), zap.Error(err))
			continue
		}
		if item.ApprovalStatus.AcceptsDecision() {
			pending = append(pending, itemID)
		}
	}
	sort.Strings(pending)
	return pending, nil
}

// CopyToReady copies a human-approved record into the ready directory and
// returns the copy's path.
func (l *Local) CopyToReady(item *types.ConvertedItem) (string, error) {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal approved item: %w", err)
	}

	path := filepath.Join(l.readyDir, item.SourceID+"_approved.json")
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// -----------------------------------------------------------------------------
// Logs
// -----------------------------------------------------------------------------

// AppendRunLog appends a generation run log entry to the current day's file.
func (l *Local) AppendRunLog(entry types.RunLogEntry) error {
	return appendLine(l.runLogPath(entry.Timestamp), entry)
}

// AppendBo2Log appends a best-of-two generation log entry.
func (l *Local) AppendBo2Log(entry types.Bo2LogEntry) error {
	return appendLine(l.bo2LogPath, entry)
}

// AppendDecisionLog appends an approval decision log entry.
func (l *Local) AppendDecisionLog(entry types.DecisionLogEntry) error {
	return appendLine(l.decisionLogPath, entry)
}

// ReadBo2Log returns every parseable best-of-two log entry in file order.
func (l *Local) ReadBo2Log() ([]types.Bo2LogEntry, error) {
	entries, skipped, err := readLines[types.Bo2LogEntry](l.bo2LogPath)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		l.logger.Warn("skipped malformed bo2 log lines", zap.Int("count", skipped))
	}
	return entries, nil
}

// ReadDecisionLog returns every parseable decision log entry in file order.
func (l *Local) ReadDecisionLog() ([]types.DecisionLogEntry, error) {
	entries, skipped, err := readLines[types.DecisionLogEntry](l.decisionLogPath)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		l.logger.Warn("skipped malformed decision log lines", zap.Int("count", skipped))
	}
	return entries, nil
}

// UpdateBo2Validation rewrites the best-of-two log, attaching the human
// validation block (and derived training pair, when one exists) to the entry
// for itemID. The rewrite goes through a temp file and rename like every
// other durable write.
func (l *Local) UpdateBo2Validation(itemID string, validation *types.HumanValidation, pair *types.TrainingPair) error {
	entries, skipped, err := readLines[types.Bo2LogEntry](l.bo2LogPath)
	if err != nil {
		return err
	}
	if skipped > 0 {
		l.logger.Warn("skipped malformed bo2 log lines during update", zap.Int("count", skipped))
	}

	updated := false
	var buf strings.Builder
	for i := range entries {
		if !updated && entries[i].ItemID == itemID {
			entries[i].Validation = validation
			entries[i].TrainingPair = pair
			updated = true
		}
		line, err := json.Marshal(entries[i])
		if err != nil {
			return fmt.Errorf("failed to marshal bo2 log entry: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if !updated {
		// No matching generation entry: nothing to annotate. Not an error;
		// the decision log remains the source of truth for the decision.
		return nil
	}

	return writeFileAtomic(l.bo2LogPath, []byte(buf.String()))
}
