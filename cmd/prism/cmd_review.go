package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"prism/internal/approval"
	"prism/internal/types"
)

// Review display styles.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	approvedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	rejectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// reviewCmd runs the interactive human validation flow.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review best-of-two items awaiting human validation",
	Long: `Walks through every item in awaiting_human_validation: shows the
seed question, the Q-matrix, and both candidates, then records the
validator's choice (or rejection) and the Q-matrix alignment check.
A validator ID is mandatory and prompted once per session.`,
	RunE: runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st := newStore(cfg)
	machine := approval.NewMachine(st, logger)
	reader := bufio.NewReader(os.Stdin)

	fmt.Println(titleStyle.Render("prism - human validation session"))

	validatorID := promptLine(reader, "\nEnter your validator ID (format VAL-xxx): ")
	if validatorID == "" {
		return fmt.Errorf("validator ID is mandatory")
	}

	pending, err := machine.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("\nNo items awaiting human validation.")
		return nil
	}
	fmt.Printf("\nFound %d item(s) awaiting validation.\n", len(pending))

	for i, itemID := range pending {
		fmt.Printf("\n[%d/%d] %s\n", i+1, len(pending), itemID)

		item, err := st.LoadConverted(itemID)
		if err != nil {
			fmt.Printf("  unreadable record, skipping: %v\n", err)
			continue
		}

		displayItem(item)
		decision := promptDecision(reader, itemID, validatorID)

		outcome, err := machine.Apply(decision)
		if err != nil {
			fmt.Printf("  decision not applied: %v\n", err)
			continue
		}

		switch outcome.Status {
		case types.StatusHumanApproved:
			fmt.Println(approvedStyle.Render(fmt.Sprintf("  APPROVED: candidate %s", decision.Choice)))
			if outcome.ReadyPath != "" {
				fmt.Printf("  Copied to: %s\n", outcome.ReadyPath)
			}
			if outcome.Pair != nil {
				fmt.Println(dimStyle.Render("  Training pair derived."))
			}
		case types.StatusRejected:
			fmt.Println(rejectedStyle.Render(fmt.Sprintf("  REJECTED: %s - %s",
				decision.RejectionCategory, decision.RejectionExplanation)))
		}

		if i < len(pending)-1 {
			if !promptYesNo(reader, "\nContinue to next item? [y/n]: ") {
				fmt.Println("Session ended.")
				break
			}
		}
	}

	fmt.Printf("\nValidation session complete. Validator: %s\n", validatorID)
	return nil
}

// displayItem renders the record a validator needs to arbitrate.
func displayItem(item *types.ConvertedItem) {
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println(titleStyle.Render("ITEM FOR REVIEW"))
	fmt.Println(strings.Repeat("=", 70))

	ex := item.Extraction
	fmt.Println(sectionStyle.Render("\n--- Q-MATRIX ---"))
	fmt.Printf("Core concept: %s\n", ex.CoreConcept)
	fmt.Printf("Mastery logic: %s\n", ex.MasteryLogic)
	keys := make([]string, 0, len(ex.QMatrix))
	for k := range ex.QMatrix {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m := ex.QMatrix[k]
		fmt.Printf("  %s (option %s): %s\n", k, m.Option, m.Description)
	}

	if item.Candidates.Bo2 == nil {
		fmt.Println(rejectedStyle.Render("\nRecord has no best-of-two payload."))
		return
	}

	fmt.Println(sectionStyle.Render("\n--- CANDIDATE A (text-abstraction) ---"))
	fmt.Println(indentJSON(item.Candidates.Bo2.CandidateA))
	fmt.Println(sectionStyle.Render("\n--- CANDIDATE B (schema-mutation) ---"))
	fmt.Println(indentJSON(item.Candidates.Bo2.CandidateB))

	if orth := item.Candidates.Bo2.OrthogonalityCheck; orth != "" {
		fmt.Printf("\nOrthogonality: %s\n", dimStyle.Render(orth))
	}
	fmt.Println(strings.Repeat("=", 70))
}

// promptDecision collects the validator's judgment for one item.
func promptDecision(reader *bufio.Reader, itemID, validatorID string) *types.ApprovalDecision {
	fmt.Println("\nSelect candidate:")
	fmt.Println("  A - candidate A (text-abstraction)")
	fmt.Println("  B - candidate B (schema-mutation)")
	fmt.Println("  R - reject both candidates")

	var choice string
	for {
		choice = strings.ToUpper(promptLine(reader, "Your choice [A/B/R]: "))
		if choice == "A" || choice == "B" || choice == "R" {
			break
		}
		fmt.Println("Invalid choice. Enter A, B, or R.")
	}

	decision := &types.ApprovalDecision{
		ItemID:      itemID,
		ValidatorID: validatorID,
	}

	if choice == "R" {
		fmt.Println("\nRejection reason:")
		for i, category := range types.RejectionCategories {
			fmt.Printf("  %d - %s\n", i+1, category)
		}
		for {
			idx, err := strconv.Atoi(promptLine(reader, "Reason number: "))
			if err == nil && idx >= 1 && idx <= len(types.RejectionCategories) {
				decision.RejectionCategory = types.RejectionCategories[idx-1]
				break
			}
			fmt.Printf("Enter a number 1-%d.\n", len(types.RejectionCategories))
		}
		decision.RejectionExplanation = promptLine(reader, "Explain the rejection: ")
		return decision
	}

	decision.Choice = types.Candidate(choice)
	decision.AlignmentPass = promptYesNo(reader, "Q-matrix alignment pass? [y/n]: ")
	if !decision.AlignmentPass {
		decision.AlignmentNotes = promptLine(reader, "Alignment notes (explain concerns): ")
	}
	return decision
}

func promptLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	// A read error (EOF on a closed stdin) yields whatever was read; the
	// callers treat an empty line as a re-prompt or abort.
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptYesNo(reader *bufio.Reader, prompt string) bool {
	for {
		answer := strings.ToLower(promptLine(reader, prompt))
		switch answer {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		fmt.Println("Enter y or n.")
	}
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
