// Package approval implements the approval-status state machine: items in
// awaiting_human_validation accept exactly one human decision, which moves
// them to human_approved or rejected. Decision input errors block before any
// durable mutation; the record write lands before the decision log line so a
// crash between the two is recoverable by re-deriving pending work from the
// absence of a matching log entry.
package approval

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prism/internal/training"
	"prism/internal/types"
)

// Decision input errors. All of these must fail before any state mutation.
var (
	ErrMissingValidator = errors.New("validator identity is mandatory")
	ErrInvalidChoice    = errors.New("choice must be candidate A or B")
	ErrMissingRejection = errors.New("rejections require a category and explanation")
	ErrInvalidCategory  = errors.New("rejection category is not in the closed set")
	ErrNotAwaiting      = errors.New("item does not accept decisions in its current status")
)

// Store is the durable-store contract the state machine depends on.
type Store interface {
	LoadConverted(itemID string) (*types.ConvertedItem, error)
	WriteConverted(item *types.ConvertedItem) (string, error)
	CopyToReady(item *types.ConvertedItem) (string, error)
	AppendDecisionLog(entry types.DecisionLogEntry) error
	UpdateBo2Validation(itemID string, validation *types.HumanValidation, pair *types.TrainingPair) error
	ListPending() ([]string, error)
}

// Outcome reports what one applied decision produced.
type Outcome struct {
	Item      *types.ConvertedItem
	Status    types.ApprovalStatus
	Pair      *types.TrainingPair
	ReadyPath string
}

// Machine applies approval decisions to converted items.
type Machine struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewMachine creates an approval state machine.
func NewMachine(store Store, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{store: store, logger: logger, now: time.Now}
}

// Pending lists the item IDs currently awaiting human validation.
func (m *Machine) Pending() ([]string, error) {
	return m.store.ListPending()
}

// checkDecision rejects malformed decision input before any mutation.
func checkDecision(d *types.ApprovalDecision) error {
	if d.ValidatorID == "" {
		return ErrMissingValidator
	}
	if d.Approves() {
		if !d.Choice.Valid() {
			return fmt.Errorf("%w: got %q", ErrInvalidChoice, d.Choice)
		}
		return nil
	}
	if d.RejectionCategory == "" || d.RejectionExplanation == "" {
		return ErrMissingRejection
	}
	if !d.RejectionCategory.Valid() {
		return fmt.Errorf("%w: got %q", ErrInvalidCategory, d.RejectionCategory)
	}
	return nil
}

// Apply transitions an awaiting item according to the decision. Write order
// is fixed: item record, ready copy (approvals), decision log, best-of-two
// log annotation.
func (m *Machine) Apply(d *types.ApprovalDecision) (*Outcome, error) {
	if err := checkDecision(d); err != nil {
		return nil, err
	}

	item, err := m.store.LoadConverted(d.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.ApprovalStatus.AcceptsDecision() {
		return nil, fmt.Errorf("%w: item %s is %s", ErrNotAwaiting, d.ItemID, item.ApprovalStatus)
	}

	if d.Timestamp.IsZero() {
		d.Timestamp = m.now().UTC()
	}

	validation := &types.HumanValidation{
		Choice:               d.Choice,
		AlignmentPass:        d.AlignmentPass,
		AlignmentNotes:       d.AlignmentNotes,
		RejectionCategory:    d.RejectionCategory,
		RejectionExplanation: d.RejectionExplanation,
		ValidatorID:          d.ValidatorID,
		Timestamp:            d.Timestamp,
	}

	if d.Approves() {
		item.ApprovalStatus = types.StatusHumanApproved
		item.Candidates.SelectedCandidate = d.Choice
	} else {
		item.ApprovalStatus = types.StatusRejected
	}
	item.Validation = validation

	// Inline single-item derivation; nil when the decision doesn't qualify.
	pair := training.FromDecision(item, d)

	outputFile, err := m.store.WriteConverted(item)
	if err != nil {
		return nil, fmt.Errorf("failed to persist decision: %w", err)
	}

	outcome := &Outcome{Item: item, Status: item.ApprovalStatus, Pair: pair}
	if d.Approves() {
		readyPath, err := m.store.CopyToReady(item)
		if err != nil {
			// The record already carries the decision; a failed ready copy
			// is re-runnable, not a lost decision.
			m.logger.Error("failed to copy approved item to ready dir",
				zap.String("item", d.ItemID), zap.Error(err))
		} else {
			outcome.ReadyPath = readyPath
		}
	}

	if err := m.store.AppendDecisionLog(types.DecisionLogEntry{
		EntryID:     uuid.NewString(),
		Timestamp:   d.Timestamp,
		ItemID:      d.ItemID,
		Decision:    *d,
		PairDerived: pair != nil,
		OutputFile:  outputFile,
	}); err != nil {
		return nil, fmt.Errorf("failed to append decision log: %w", err)
	}

	if err := m.store.UpdateBo2Validation(d.ItemID, validation, pair); err != nil {
		m.logger.Error("failed to annotate bo2 log",
			zap.String("item", d.ItemID), zap.Error(err))
	}

	m.logger.Info("decision applied",
		zap.String("item", d.ItemID),
		zap.String("status", string(item.ApprovalStatus)),
		zap.String("validator", d.ValidatorID))
	return outcome, nil
}
