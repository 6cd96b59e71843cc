package commands

import (
	"fmt"
	"strings"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/relaxation"
	"github.com/jakechorley/duty-roster/pkg/core/services"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
	"github.com/jakechorley/duty-roster/pkg/core/validation"
)

// maxListed caps how many bottlenecks and violations are printed
const maxListed = 20

func statusLabel(status solver.Status) string {
	switch status {
	case solver.StatusSuccess:
		return "✅ SUCCESS"
	case solver.StatusPartial:
		return "⚠️  PARTIAL"
	default:
		return "❌ FAILED"
	}
}

func formatBottleneck(b model.Bottleneck) string {
	line := fmt.Sprintf("%s %s %s: %d/%d filled (%s)", b.Date, b.Timeblock, b.ServiceCode, b.Assigned, b.Needed, b.Reason)
	if b.Suggestion != "" {
		line += " - " + b.Suggestion
	}
	return line
}

func formatViolation(v validation.Violation) string {
	var where []string
	for _, part := range []string{v.WorkerID, v.Date, string(v.Timeblock), v.ServiceCode} {
		if part != "" {
			where = append(where, part)
		}
	}
	if len(where) == 0 {
		return fmt.Sprintf("[%s] %s: %s", v.Severity, v.Type, v.Message)
	}
	return fmt.Sprintf("[%s] %s (%s): %s", v.Severity, v.Type, strings.Join(where, " "), v.Message)
}

func printSolveResult(result *services.SolveResult) {
	out := result.Output

	fmt.Printf("\n🗓  Roster Solve Results\n\n")
	fmt.Printf("Run ID:      %s\n", out.RunID)
	if out.RosterID != "" {
		fmt.Printf("Roster ID:   %s\n", out.RosterID)
	}
	fmt.Printf("Solver:      %s\n", result.Solver)
	fmt.Printf("Status:      %s\n", statusLabel(out.Status))
	fmt.Printf("Coverage:    %.1f%% (%d/%d positions)\n",
		out.CoveragePercent, out.Statistics.FilledPositions, out.Statistics.TotalPositions)
	fmt.Printf("Assignments: %d greedy, %d pre-planned\n",
		out.Statistics.GreedyAssignments, out.Statistics.PrePlannedAssignments)
	fmt.Printf("Solve Time:  %dms\n", out.SolveTimeMs)
	if out.Cached {
		fmt.Printf("Cache:       hit\n")
	}
	fmt.Println()

	if len(out.Bottlenecks) > 0 {
		fmt.Printf("⚠️  Bottlenecks (%d):\n", len(out.Bottlenecks))
		for i, b := range out.Bottlenecks {
			if i == maxListed {
				fmt.Printf("  ... and %d more\n", len(out.Bottlenecks)-maxListed)
				break
			}
			fmt.Printf("  • %s\n", formatBottleneck(b))
		}
		fmt.Println()
	}

	printReport(result.Report, result.Acceptance)
}

func printReport(report validation.Report, acceptance relaxation.Acceptance) {
	fmt.Printf("Validation:  %d critical, %d warning, %d info\n",
		report.CriticalCount, report.WarningCount, report.InfoCount)
	for i, v := range report.Violations {
		if i == maxListed {
			fmt.Printf("  ... and %d more\n", len(report.Violations)-maxListed)
			break
		}
		fmt.Printf("  • %s\n", formatViolation(v))
	}

	if acceptance.Accepted {
		fmt.Printf("Acceptance:  ✅ accepted\n\n")
	} else {
		fmt.Printf("Acceptance:  ❌ rejected (%s)\n\n", acceptance.Reason)
	}
}
