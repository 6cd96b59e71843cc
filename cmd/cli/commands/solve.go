package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/services"
	"github.com/jakechorley/duty-roster/pkg/rosterfile"
)

// SolveCmd creates the solve command
func SolveCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve a roster from a YAML file or the database",
		Long: `Run the greedy solver over a roster.

With --file the roster is read from YAML and the result can be written with --out.
With --roster the roster is loaded from Postgres and the solution saved unless --dry-run is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			outPath, _ := cmd.Flags().GetString("out")
			rosterID, _ := cmd.Flags().GetString("roster")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			app.Logger.Debug("solve command",
				zap.String("file", file),
				zap.String("roster_id", rosterID),
				zap.Bool("dry_run", dryRun))

			if rosterID != "" {
				return solveStored(app, rosterID, dryRun)
			}
			return solveFile(app, file, outPath)
		},
	}

	cmd.Flags().StringP("file", "f", "", "Roster YAML file to solve")
	cmd.Flags().StringP("out", "o", "", "Write the solution to this YAML file")
	cmd.Flags().String("roster", "", "ID of a roster stored in the database")
	cmd.Flags().Bool("dry-run", false, "Solve without saving to the database")
	cmd.MarkFlagsMutuallyExclusive("file", "roster")
	cmd.MarkFlagsOneRequired("file", "roster")
	cmd.MarkFlagsMutuallyExclusive("out", "roster")

	return cmd
}

func solveFile(app *AppContext, file, outPath string) error {
	input, err := rosterfile.LoadInput(file)
	if err != nil {
		return err
	}

	resultCache, err := app.OpenCache()
	if err != nil {
		return err
	}
	defer resultCache.Close()

	result, err := services.SolveInput(app.Ctx, input, app.Cfg, services.Collaborators{
		Logger: app.Logger,
		Cache:  resultCache,
	})
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	printSolveResult(result)

	if outPath != "" {
		if err := rosterfile.SaveSolution(outPath, result.Output); err != nil {
			return err
		}
		fmt.Printf("Solution written to %s\n", outPath)
	}
	return nil
}

func solveStored(app *AppContext, rosterID string, dryRun bool) error {
	database, err := app.OpenDatabase()
	if err != nil {
		return err
	}
	defer database.Close()

	result, err := services.SolveRoster(app.Ctx, database, app.Cfg, services.Collaborators{Logger: app.Logger}, rosterID, dryRun)
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	printSolveResult(result)

	switch {
	case dryRun:
		fmt.Println("🧪 DRY RUN (not saved)")
	case result.Persisted:
		fmt.Println("Solution saved to database")
	default:
		fmt.Println("Solution not saved (use relaxation.force to save rejected solutions)")
	}
	return nil
}
