package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prism/internal/calibration"
	"prism/internal/config"
	"prism/internal/types"
	"prism/internal/validate"
)

// =============================================================================
// STAGE SEQUENCER - extraction -> generation -> audit state machine
// =============================================================================

// Generator is the generation-service collaborator contract the sequencer
// depends on. Implemented by generation.Service; faked in tests.
type Generator interface {
	Extract(ctx context.Context, item *types.SourceItem) (*types.ExtractionResult, error)
	GenerateSingle(ctx context.Context, item *types.SourceItem, ex *types.ExtractionResult) (*types.GenerationDraft, error)
	GenerateBo2(ctx context.Context, item *types.SourceItem, ex *types.ExtractionResult) (*types.GenerationDraft, error)
	Regenerate(ctx context.Context, item *types.SourceItem, ex *types.ExtractionResult, rejected *types.GenerationDraft, feedback string) (*types.GenerationDraft, error)
	Audit(ctx context.Context, item *types.SourceItem, ex *types.ExtractionResult, draft *types.GenerationDraft) (*types.AuditResult, error)
	Model() string
}

// Store is the durable-store contract the sequencer depends on.
type Store interface {
	HasConverted(itemID string) bool
	WriteConverted(item *types.ConvertedItem) (string, error)
	AppendRunLog(entry types.RunLogEntry) error
	AppendBo2Log(entry types.Bo2LogEntry) error
}

// itemBaseCost is the call-unit charge for one item before retries:
// extraction, generation, and the first audit are one unit each.
const itemBaseCost = 3

// retryCost is the additional call-unit charge per audit retry.
const retryCost = 1

// Sequencer drives source items through the three-stage pipeline, one item
// at a time in enumeration order. A failed item is logged and skipped; the
// batch always runs to completion.
type Sequencer struct {
	gen      Generator
	store    Store
	governor *RateGovernor
	policy   config.PipelineConfig
	logger   *zap.Logger
	dryRun   bool

	now func() time.Time
}

// NewSequencer creates a sequencer with the given collaborators and policy.
func NewSequencer(gen Generator, store Store, governor *RateGovernor, policy config.PipelineConfig, logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		gen:      gen,
		store:    store,
		governor: governor,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// SetDryRun makes Run enumerate and log items without collaborator calls.
func (s *Sequencer) SetDryRun(dryRun bool) { s.dryRun = dryRun }

// Run processes the given items sequentially.
func (s *Sequencer) Run(ctx context.Context, items []*types.SourceItem) error {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.ProcessItem(ctx, item)
	}
	return nil
}

// ProcessItem runs one item through the pipeline. Every terminal outcome is
// recorded in the run log; nothing here is fatal to the surrounding batch.
func (s *Sequencer) ProcessItem(ctx context.Context, item *types.SourceItem) {
	// Idempotent skip: an already-converted item is never reprocessed and
	// produces no new record or log entry.
	if s.store.HasConverted(item.ID) {
		s.logger.Debug("already converted, skipping", zap.String("item", item.ID))
		return
	}

	if s.dryRun {
		s.logger.Info("dry run", zap.String("item", item.ID))
		s.appendRunLog(types.RunLogEntry{ItemID: item.ID, Status: types.RunDryRun})
		return
	}

	s.governor.Admit(itemBaseCost)

	// Stage 1: extraction. Failure is terminal for the item, no retry.
	extraction, err := s.gen.Extract(ctx, item)
	if err != nil {
		s.logger.Warn("stage 1 failed", zap.String("item", item.ID), zap.Error(err))
		s.appendRunLog(types.RunLogEntry{ItemID: item.ID, Status: types.RunStage1Failed})
		return
	}

	// Branch selection is permanent: the diagram-dependence flag decides
	// Single vs Bo2 here and is never revisited.
	isBo2 := extraction.DiagramDependent
	s.logger.Info("stage 1 complete",
		zap.String("item", item.ID),
		zap.Bool("diagram_dependent", isBo2))

	// Stage 2: generation. Failure is terminal for the item.
	var draft *types.GenerationDraft
	if isBo2 {
		draft, err = s.gen.GenerateBo2(ctx, item, extraction)
	} else {
		draft, err = s.gen.GenerateSingle(ctx, item, extraction)
	}
	if err != nil {
		s.logger.Warn("stage 2 failed", zap.String("item", item.ID), zap.Error(err))
		s.appendRunLog(types.RunLogEntry{
			ItemID:           item.ID,
			Status:           types.RunStage2Failed,
			DiagramDependent: isBo2,
		})
		return
	}

	// Stage 3: audit with bounded feedback-conditioned regeneration.
	draft, audit := s.auditLoop(ctx, item, extraction, draft)

	record := s.buildRecord(item, extraction, draft, audit)

	// Validation is advisory at write time: violations are logged but the
	// record is still written, because downstream gating is the
	// authoritative check.
	if report := validate.Check(record); !report.Valid {
		s.logger.Warn("invariant violations, writing anyway",
			zap.String("item", item.ID),
			zap.Strings("errors", report.Errors))
	}

	outputFile, err := s.store.WriteConverted(record)
	if err != nil {
		s.logger.Error("failed to write converted item", zap.String("item", item.ID), zap.Error(err))
		return
	}

	s.appendRunLog(types.RunLogEntry{
		ItemID:           item.ID,
		Status:           types.RunSuccess,
		DiagramDependent: isBo2,
		GenerationType:   draft.Type,
		AuditStatus:      audit.Status,
		Retries:          audit.Retries,
		OutputFile:       outputFile,
		GeneratorModel:   s.gen.Model(),
		AuditModel:       s.gen.Model(),
	})

	if isBo2 {
		s.appendBo2Log(item, extraction, draft, audit)
	}

	s.logger.Info("item converted",
		zap.String("item", item.ID),
		zap.String("status", string(record.ApprovalStatus)),
		zap.Int("retries", audit.Retries))
}

// auditLoop runs the audit-retry cycle and returns the final draft and audit
// result. Three terminal outcomes: the audit approves; the retry bound is
// exhausted with the last (rejected) draft kept; or a collaborator call
// errors outright, which breaks the loop immediately with the current draft
// and, for an audit-call error, an UNKNOWN verdict distinct from REJECTED.
func (s *Sequencer) auditLoop(ctx context.Context, item *types.SourceItem,
	extraction *types.ExtractionResult, draft *types.GenerationDraft) (*types.GenerationDraft, *types.AuditResult) {

	retries := 0
	for {
		result, err := s.gen.Audit(ctx, item, extraction, draft)
		if err != nil {
			s.logger.Warn("audit call errored, keeping current draft",
				zap.String("item", item.ID), zap.Error(err))
			return draft, &types.AuditResult{Status: types.AuditUnknown, Retries: retries}
		}
		result.Retries = retries

		if result.Status == types.AuditApproved {
			s.logger.Info("audit approved", zap.String("item", item.ID), zap.Int("retries", retries))
			return draft, result
		}

		if retries >= s.policy.MaxAuditRetries {
			s.logger.Info("audit retries exhausted",
				zap.String("item", item.ID), zap.Int("retries", retries))
			return draft, result
		}
		retries++

		s.logger.Info("audit rejected, regenerating",
			zap.String("item", item.ID),
			zap.Int("retry", retries),
			zap.String("feedback", result.Feedback))

		s.governor.Admit(retryCost)
		next, err := s.gen.Regenerate(ctx, item, extraction, draft, result.Feedback)
		if err != nil {
			s.logger.Warn("regeneration errored, keeping rejected draft",
				zap.String("item", item.ID), zap.Error(err))
			result.Retries = retries
			return draft, result
		}
		draft = next
	}
}

// buildRecord assembles the durable ConvertedItem, applying the disposition
// rule to derive the approval status.
func (s *Sequencer) buildRecord(item *types.SourceItem, extraction *types.ExtractionResult,
	draft *types.GenerationDraft, audit *types.AuditResult) *types.ConvertedItem {

	var status types.ApprovalStatus
	switch {
	case draft.Type == types.GenerationBo2:
		// A human must choose between pathways regardless of audit verdict.
		status = types.StatusAwaitingHuman
	case audit.Status == types.AuditApproved:
		status = types.StatusAutoApproved
	default:
		status = types.StatusFailedAudit
	}

	return &types.ConvertedItem{
		SchemaVersion:  types.SchemaVersion,
		SourceID:       item.ID,
		SourceFile:     sourceFileName(item),
		GeneratedAt:    s.now().UTC(),
		ApprovalStatus: status,
		Extraction:     *extraction,
		Rubric: types.ScoringRubric{
			ScoringModel:     "concept_presence_only",
			CorrectConcepts:  []string{extraction.CoreConcept},
			CorrectMechanism: extraction.MasteryLogic,
			FluencyExcluded:  true,
		},
		Scoring: types.ScoringConfig{
			JointScoreScale:      []int{0, 1, 2, 3, 4},
			MasteryGateThreshold: s.policy.MasteryGateThreshold,
			ResponseModel:        extraction.ResponseModel,
			RoutingLoKEnabled:    true,
		},
		Candidates:  *draft,
		Audit:       *audit,
		Calibration: calibration.ColdStart(item),
	}
}

func (s *Sequencer) appendRunLog(entry types.RunLogEntry) {
	entry.EntryID = uuid.NewString()
	entry.Timestamp = s.now().UTC()
	if err := s.store.AppendRunLog(entry); err != nil {
		s.logger.Error("failed to append run log", zap.Error(err))
	}
}

func (s *Sequencer) appendBo2Log(item *types.SourceItem, extraction *types.ExtractionResult,
	draft *types.GenerationDraft, audit *types.AuditResult) {

	entry := types.Bo2LogEntry{
		EntryID:               uuid.NewString(),
		Timestamp:             s.now().UTC(),
		ItemID:                item.ID,
		SeedConcept:           extraction.CoreConcept,
		DiagramMechanism:      extraction.DiagramMechanism,
		QMatrix:               extraction.QMatrix,
		TransferDomains:       extraction.TransferDomains,
		MisconceptionOrdering: extraction.MisconceptionOrdering,
		ResponseModel:         extraction.ResponseModel,
		CandidateA:            draft.Bo2.CandidateA,
		CandidateB:            draft.Bo2.CandidateB,
		OrthogonalityCheck:    draft.Bo2.OrthogonalityCheck,
		AuditStatus:           audit.Status,
		Retries:               audit.Retries,
		GeneratorModel:        s.gen.Model(),
		AuditModel:            s.gen.Model(),
	}
	if err := s.store.AppendBo2Log(entry); err != nil {
		s.logger.Error("failed to append bo2 log", zap.Error(err))
	}
}

// sourceFileName reconstructs the conventional source path for an item.
func sourceFileName(item *types.SourceItem) string {
	if item.PaperCode == "" {
		return ""
	}
	return item.PaperCode + "/" + item.ID + ".json"
}
