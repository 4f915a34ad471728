package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prism/internal/readiness"
)

// errNotReady signals the non-zero exit for a failed evaluation without
// short-circuiting cobra's post-run hooks. The report itself is already
// printed, so main suppresses the error line.
var errNotReady = errors.New("readiness criteria not satisfied")

// readinessCmd evaluates whether accumulated validation evidence
// supports retiring mandatory human review.
var readinessCmd = &cobra.Command{
	Use:   "readiness",
	Short: "Evaluate the evidence for moving past mandatory human validation",
	Long: `Checks the three promotion criteria against the best-of-two and
decision logs: validated pair volume, model-vs-human agreement, and
the recent human override rate. All three must pass. Exits non-zero
when the corpus is not ready.`,
	RunE: runReadiness,
}

func runReadiness(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st := newStore(cfg)
	entries, err := st.ReadBo2Log()
	if err != nil {
		return err
	}
	decisions, err := st.ReadDecisionLog()
	if err != nil {
		return err
	}
	agreement, err := readiness.LoadAgreement(cfg.Readiness.AgreementMetricsPath)
	if err != nil {
		logger.Warn("agreement metrics unreadable", zap.Error(err))
	}

	report := readiness.Evaluate(cfg.Readiness, entries, decisions, agreement)

	fmt.Println(titleStyle.Render("Readiness evaluation"))
	fmt.Println()
	for _, c := range report.Criteria {
		verdict := rejectedStyle.Render("FAIL")
		if c.Pass {
			verdict = approvedStyle.Render("PASS")
		}
		fmt.Printf("  [%s] %-18s %s\n", verdict, c.Name, c.Detail)
	}
	fmt.Println()
	if report.Ready {
		fmt.Println(approvedStyle.Render("READY: all criteria satisfied."))
		return nil
	}
	fmt.Println(rejectedStyle.Render("NOT READY: human validation remains mandatory."))
	return errNotReady
}

func init() {
	rootCmd.AddCommand(readinessCmd)
}
