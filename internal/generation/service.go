package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"prism/internal/types"
)

// Service exposes the three pipeline collaborators (extraction, candidate
// generation, audit) on top of an LLMClient. Each method issues exactly one
// provider call; transient retries happen inside the client, while a
// malformed completion is a parse failure the sequencer treats as terminal
// for that stage.
type Service struct {
	client LLMClient
	logger *zap.Logger
}

// NewService creates a generation service.
func NewService(client LLMClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, logger: logger}
}

// Model returns the provider model identifier, for run-log attribution.
func (s *Service) Model() string { return s.client.Model() }

// Extract runs Stage 1 over a source item.
func (s *Service) Extract(ctx context.Context, item *types.SourceItem) (*types.ExtractionResult, error) {
	response, err := s.client.CompleteWithSystem(ctx, stage1System, buildStage1Prompt(item))
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	var result types.ExtractionResult
	if err := decodeResponse(response, &result); err != nil {
		return nil, fmt.Errorf("extraction output malformed: %w", err)
	}

	s.logger.Debug("stage 1 extraction complete",
		zap.String("item", item.ID),
		zap.Bool("diagram_dependent", result.DiagramDependent),
		zap.Int("q_matrix_entries", len(result.QMatrix)))
	return &result, nil
}

// GenerateSingle runs Stage 2 on the single-candidate branch.
func (s *Service) GenerateSingle(ctx context.Context, item *types.SourceItem, ex *types.ExtractionResult) (*types.GenerationDraft, error) {
	response, err := s.client.CompleteWithSystem(ctx, stage2SingleSystem, buildStage2Prompt(item, ex, false))
	if err != nil {
		return nil, fmt.Errorf("single generation call failed: %w", err)
	}

	var payload types.SinglePayload
	if err := decodeResponse(response, &payload); err != nil {
		return nil, fmt.Errorf("single generation output malformed: %w", err)
	}
	return &types.GenerationDraft{Type: types.GenerationSingle, Single: &payload}, nil
}

// GenerateBo2 runs Stage 2 on the best-of-two branch.
func (s *Service) GenerateBo2(ctx context.Context, item *types.SourceItem, ex *types.ExtractionResult) (*types.GenerationDraft, error) {
	response, err := s.client.CompleteWithSystem(ctx, stage2Bo2System, buildStage2Prompt(item, ex, true))
	if err != nil {
		return nil, fmt.Errorf("bo2 generation call failed: %w", err)
	}

	var payload types.Bo2Payload
	if err := decodeResponse(response, &payload); err != nil {
		return nil, fmt.Errorf("bo2 generation output malformed: %w", err)
	}

	draft := &types.GenerationDraft{Type: types.GenerationBo2, Bo2: &payload}
	if err := draft.CheckShape(); err != nil {
		return nil, fmt.Errorf("bo2 generation output malformed: %w", err)
	}
	return draft, nil
}

// Regenerate re-runs Stage 2 on the same branch as the rejected draft,
// passing the draft and the audit feedback so the new candidate addresses it.
func (s *Service) Regenerate(ctx context.Context, item *types.SourceItem, ex *types.ExtractionResult,
	rejected *types.GenerationDraft, feedback string) (*types.GenerationDraft, error) {

	prompt := buildRetryPrompt(item, ex, rejected, feedback)

	if rejected.Type == types.GenerationBo2 {
		response, err := s.client.CompleteWithSystem(ctx, stage2Bo2System, prompt)
		if err != nil {
			return nil, fmt.Errorf("bo2 regeneration call failed: %w", err)
		}
		var payload types.Bo2Payload
		if err := decodeResponse(response, &payload); err != nil {
			return nil, fmt.Errorf("bo2 regeneration output malformed: %w", err)
		}
		draft := &types.GenerationDraft{Type: types.GenerationBo2, Bo2: &payload}
		if err := draft.CheckShape(); err != nil {
			return nil, fmt.Errorf("bo2 regeneration output malformed: %w", err)
		}
		return draft, nil
	}

	response, err := s.client.CompleteWithSystem(ctx, stage2SingleSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("single regeneration call failed: %w", err)
	}
	var payload types.SinglePayload
	if err := decodeResponse(response, &payload); err != nil {
		return nil, fmt.Errorf("single regeneration output malformed: %w", err)
	}
	return &types.GenerationDraft{Type: types.GenerationSingle, Single: &payload}, nil
}

// auditEnvelope is the wire shape of a Stage 3 completion.
type auditEnvelope struct {
	Status           string          `json:"status"`
	CriticalFeedback string          `json:"critical_feedback"`
	Evaluation       json.RawMessage `json:"evaluation"`
}

// Audit runs Stage 3 over the current draft and returns the verdict.
func (s *Service) Audit(ctx context.Context, item *types.SourceItem, ex *types.ExtractionResult, draft *types.GenerationDraft) (*types.AuditResult, error) {
	response, err := s.client.CompleteWithSystem(ctx, stage3System, buildStage3Prompt(item, ex, draft))
	if err != nil {
		return nil, fmt.Errorf("audit call failed: %w", err)
	}

	var envelope auditEnvelope
	if err := decodeResponse(response, &envelope); err != nil {
		return nil, fmt.Errorf("audit output malformed: %w", err)
	}

	status := types.AuditStatus(strings.ToUpper(strings.TrimSpace(envelope.Status)))
	if status != types.AuditApproved && status != types.AuditRejected {
		s.logger.Warn("unexpected audit status, treating as rejection",
			zap.String("item", item.ID),
			zap.String("status", envelope.Status))
		status = types.AuditRejected
	}

	return &types.AuditResult{
		Status:     status,
		Feedback:   envelope.CriticalFeedback,
		Evaluation: envelope.Evaluation,
	}, nil
}

// decodeResponse extracts the JSON object from a completion and unmarshals
// it into out.
func decodeResponse(response string, out any) error {
	jsonStr := ExtractJSON(response)
	if jsonStr == "" {
		return fmt.Errorf("no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("JSON parse failed: %w", err)
	}
	return nil
}
