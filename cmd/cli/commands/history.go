package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HistoryCmd creates the history command
func HistoryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <roster_id>",
		Short: "List the saved solve runs of a roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.OpenDatabase()
			if err != nil {
				return err
			}
			defer database.Close()

			roster, err := database.GetRoster(app.Ctx, args[0])
			if err != nil {
				return err
			}

			runs, err := database.GetSolveRuns(app.Ctx, roster.ID)
			if err != nil {
				return err
			}

			fmt.Printf("\n📚 Solve history for %s (%s)\n\n", roster.Name, roster.ID)
			if len(runs) == 0 {
				fmt.Println("No solve runs saved yet.")
				return nil
			}

			for _, run := range runs {
				accepted := "✅"
				if !run.Accepted {
					accepted = "⚠️ "
				}
				fmt.Printf("  %s %s  %-8s %5.1f%% (%d/%d)  %s  %s\n",
					accepted,
					run.CreatedAt.Format("2006-01-02 15:04"),
					run.Status,
					run.CoveragePercent,
					run.FilledPositions,
					run.TotalPositions,
					run.Solver,
					run.ID)
			}
			fmt.Println()
			return nil
		},
	}
}
