package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prism/internal/types"
	"prism/internal/validate"
)

var checkJSON bool

// errCheckFailed signals the non-zero exit for an invalid record; the
// violations are already printed, so main suppresses the error line.
var errCheckFailed = errors.New("record failed validation")

// checkCmd validates a single converted record against the structural
// invariants enforced at conversion time.
var checkCmd = &cobra.Command{
	Use:   "check <converted-file>",
	Short: "Validate a converted record file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading record: %w", err)
	}

	var item types.ConvertedItem
	if err := json.Unmarshal(data, &item); err != nil {
		return fmt.Errorf("parsing record: %w", err)
	}

	report := validate.Check(&item)

	if checkJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		if report.Valid {
			fmt.Println(approvedStyle.Render(fmt.Sprintf("VALID: %s", item.SourceID)))
		} else {
			fmt.Println(rejectedStyle.Render(fmt.Sprintf("INVALID: %s", item.SourceID)))
			for _, e := range report.Errors {
				fmt.Printf("  error: %s\n", e)
			}
		}
		for _, w := range report.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	}

	if !report.Valid {
		return errCheckFailed
	}
	return nil
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "emit the validation report as JSON")
	rootCmd.AddCommand(checkCmd)
}
