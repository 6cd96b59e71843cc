package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/internal/config"
	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/relaxation"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
	"github.com/jakechorley/duty-roster/pkg/core/validation"
)

// ValidationResult represents the verdict on an externally produced solution
type ValidationResult struct {
	Report          validation.Report     `json:"report"`
	Acceptance      relaxation.Acceptance `json:"acceptance"`
	CoveragePercent float64               `json:"coveragePercent"`
}

// ValidateSolution checks a solution from any solver against the roster it claims to solve
// and decides whether it may be accepted at the coverage it achieves
func ValidateSolution(input solver.Input, assignments []model.Assignment, cfg *config.Config, logger *zap.Logger) (*ValidationResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Debug("Validating solution",
		zap.String("roster_id", input.RosterID),
		zap.Int("assignments", len(assignments)))

	report := validation.Validate(validationInput(input, assignments), cfg.ValidationConstraints())
	coverage := CoverageOf(input.Requirements, assignments)

	acceptance, err := relaxation.NewManager(cfg.RelaxationPolicy(), logger).AcceptReport(report, coverage)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate solution: %w", err)
	}

	logger.Info("Solution validated",
		zap.Bool("valid", report.Valid),
		zap.Int("critical", report.CriticalCount),
		zap.Int("warnings", report.WarningCount),
		zap.Float64("coverage_percent", coverage),
		zap.Bool("accepted", acceptance.Accepted))

	return &ValidationResult{Report: report, Acceptance: acceptance, CoveragePercent: coverage}, nil
}

// CoverageOf returns the percent of required positions the active assignments fill. Each
// assignment fills at most one position of its (date, timeblock, service).
func CoverageOf(requirements []model.Requirement, assignments []model.Assignment) float64 {
	pool := make(map[model.ServiceSlotKey]int)
	for _, a := range assignments {
		if a.IsActive() {
			pool[model.ServiceSlotKey{Date: a.Date, Timeblock: a.Timeblock, ServiceCode: a.ServiceCode}]++
		}
	}

	required, filled := 0, 0
	for _, r := range requirements {
		key := model.ServiceSlotKey{Date: r.Date, Timeblock: r.Timeblock, ServiceCode: r.ServiceCode}
		n := min(r.Count, pool[key])
		pool[key] -= n
		required += r.Count
		filled += n
	}
	return solver.Coverage(filled, required)
}
