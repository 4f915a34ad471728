// Package readiness evaluates the automation-transition criteria: whether
// enough validated best-of-two decisions have accumulated, with high enough
// preference-model agreement and a low enough recent override rate, to
// retire human review. Read-only over the decision logs.
package readiness

import (
	"encoding/json"
	"fmt"
	"os"

	"prism/internal/config"
	"prism/internal/types"
)

// Criterion is one evaluated readiness criterion.
type Criterion struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail"`
}

// Report aggregates the three criteria. Ready is their logical AND.
type Report struct {
	Criteria []Criterion `json:"criteria"`
	Ready    bool        `json:"ready"`
}

// AgreementMetrics is the external preference-model metrics file shape.
type AgreementMetrics struct {
	AgreementRate float64 `json:"agreement_rate"`
}

// LoadAgreement reads the agreement metrics file. A missing file returns
// (nil, nil): the criterion then fails unconditionally rather than skipping.
func LoadAgreement(path string) (*float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read agreement metrics: %w", err)
	}
	var metrics AgreementMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, fmt.Errorf("failed to parse agreement metrics: %w", err)
	}
	return &metrics.AgreementRate, nil
}

// Evaluate applies the three readiness criteria. bo2Entries and decisions
// come from the NDJSON logs with malformed lines already skipped by the
// reader; agreement is nil when no metrics file exists.
func Evaluate(cfg config.ReadinessConfig, bo2Entries []types.Bo2LogEntry,
	decisions []types.DecisionLogEntry, agreement *float64) Report {

	var criteria []Criterion

	// Criterion 1: volume of validated pairs.
	validated := 0
	for i := range bo2Entries {
		v := bo2Entries[i].Validation
		if v != nil && v.Choice != "" && v.AlignmentPass {
			validated++
		}
	}
	criteria = append(criteria, Criterion{
		Name:   "volume",
		Pass:   validated >= cfg.MinValidatedPairs,
		Detail: fmt.Sprintf("%d / %d validated pairs", validated, cfg.MinValidatedPairs),
	})

	// Criterion 2: preference-model agreement. No metric means fail, not skip.
	if agreement == nil {
		criteria = append(criteria, Criterion{
			Name:   "model_agreement",
			Pass:   false,
			Detail: "no agreement metrics found",
		})
	} else {
		criteria = append(criteria, Criterion{
			Name:   "model_agreement",
			Pass:   *agreement >= cfg.MinAgreement,
			Detail: fmt.Sprintf("agreement %.1f%% (threshold %.1f%%)", *agreement*100, cfg.MinAgreement*100),
		})
	}

	// Criterion 3: override rate over the most recent window. A window with
	// fewer decisions than required fails automatically.
	if len(decisions) < cfg.OverrideWindow {
		criteria = append(criteria, Criterion{
			Name:   "override_rate",
			Pass:   false,
			Detail: fmt.Sprintf("only %d of %d required recent decisions", len(decisions), cfg.OverrideWindow),
		})
	} else {
		recent := decisions[len(decisions)-cfg.OverrideWindow:]
		overrides := 0
		for i := range recent {
			if recent[i].Decision.RejectionCategory != "" {
				overrides++
			}
		}
		rate := float64(overrides) / float64(len(recent))
		criteria = append(criteria, Criterion{
			Name:   "override_rate",
			Pass:   rate < cfg.MaxOverrideRate,
			Detail: fmt.Sprintf("override rate %.1f%% over last %d decisions (limit %.1f%%)", rate*100, len(recent), cfg.MaxOverrideRate*100),
		})
	}

	ready := true
	for _, c := range criteria {
		ready = ready && c.Pass
	}
	return Report{Criteria: criteria, Ready: ready}
}
