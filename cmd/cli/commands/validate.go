package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/duty-roster/pkg/core/services"
	"github.com/jakechorley/duty-roster/pkg/rosterfile"
)

// ValidateCmd creates the validate command
func ValidateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a solution file against its roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			solutionPath, _ := cmd.Flags().GetString("solution")

			input, err := rosterfile.LoadInput(file)
			if err != nil {
				return err
			}

			assignments, err := rosterfile.LoadSolution(solutionPath)
			if err != nil {
				return err
			}

			result, err := services.ValidateSolution(input, assignments, app.Cfg, app.Logger)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			fmt.Printf("\n🔍 Validation of %s\n\n", solutionPath)
			fmt.Printf("Coverage:    %.1f%%\n", result.CoveragePercent)
			printReport(result.Report, result.Acceptance)

			if !result.Acceptance.Accepted {
				return fmt.Errorf("solution rejected: %s", result.Acceptance.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", "", "Roster YAML file")
	cmd.Flags().StringP("solution", "s", "", "Solution YAML file")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("solution")

	return cmd
}
