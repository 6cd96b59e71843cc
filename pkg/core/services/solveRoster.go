package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/internal/config"
	"github.com/jakechorley/duty-roster/pkg/cache"
	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/relaxation"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
	"github.com/jakechorley/duty-roster/pkg/core/validation"
	"github.com/jakechorley/duty-roster/pkg/db"
	"github.com/jakechorley/duty-roster/pkg/metrics"
)

// SolveRosterStore defines the database operations needed for solving a stored roster
type SolveRosterStore interface {
	LoadRosterInput(ctx context.Context, rosterID string) (solver.Input, error)
	SaveSolveResult(ctx context.Context, result db.SolveResult) error
}

// SolveResult represents the outcome of a solve use case
type SolveResult struct {
	Output     *solver.Output        `json:"output"`
	Solver     string                `json:"solver"`
	Report     validation.Report     `json:"report"`
	Acceptance relaxation.Acceptance `json:"acceptance"`

	// Persisted is true when the run was written to the store
	Persisted bool `json:"persisted"`
}

// Collaborators bundles the optional dependencies of the solve pipeline
type Collaborators struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Cache   *cache.ResultCache
}

func (c Collaborators) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// SolveRoster loads a stored roster, solves it, validates the solution and persists it
// unless dryRun is set, the run failed or relaxation rejected it (overridable with
// relaxation.force)
func SolveRoster(ctx context.Context, store SolveRosterStore, cfg *config.Config, deps Collaborators, rosterID string, dryRun bool) (*SolveResult, error) {
	logger := deps.logger().With(zap.String("roster_id", rosterID))

	logger.Debug("Loading roster input")
	input, err := store.LoadRosterInput(ctx, rosterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	// Store-backed solves always run fresh
	deps.Cache = nil
	result, err := SolveInput(ctx, input, cfg, deps)
	if err != nil {
		return nil, err
	}

	if dryRun {
		logger.Info("Dry run, solution not persisted", zap.String("run_id", result.Output.RunID))
		return result, nil
	}

	if result.Output.Status == solver.StatusFailed {
		logger.Warn("Solve failed, solution not persisted",
			zap.String("run_id", result.Output.RunID),
			zap.Float64("coverage_percent", result.Output.CoveragePercent))
		return result, nil
	}

	if !result.Acceptance.Accepted && !cfg.Relaxation.Force {
		logger.Warn("Solution rejected by relaxation, not persisted",
			zap.String("run_id", result.Output.RunID),
			zap.String("reason", result.Acceptance.Reason))
		return result, nil
	}

	record := db.NewSolveResult(result.Output, result.Solver, result.Acceptance.Accepted)
	if err := store.SaveSolveResult(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save solve result: %w", err)
	}
	result.Persisted = true

	logger.Info("Solve result saved",
		zap.String("run_id", result.Output.RunID),
		zap.Int("assignments", len(record.Assignments)),
		zap.Int("bottlenecks", len(record.Bottlenecks)))

	return result, nil
}

// SolveInput solves an inline input and evaluates the solution. Results are served from and
// written to the cache when one is configured.
func SolveInput(ctx context.Context, input solver.Input, cfg *config.Config, deps Collaborators) (*SolveResult, error) {
	logger := deps.logger()

	opts, err := cfg.SolverOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to configure solver: %w", err)
	}
	engine := solver.New(opts, logger)

	if cfg.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.SolveTimeout)
		defer cancel()
	}

	// Step 1: Serve from cache when possible
	var key string
	if deps.Cache.Enabled() {
		key, err = cache.Key(engine.Name(), engine.Options(), input)
		if err != nil {
			return nil, err
		}
		out, err := deps.Cache.Get(ctx, key)
		switch {
		case err == nil:
			deps.Metrics.RecordCacheLookup(true)
			out.Cached = true
			logger.Info("Serving cached solve", zap.String("run_id", out.RunID))
			return evaluate(input, out, engine.Name(), cfg, logger)
		case errors.Is(err, cache.ErrCacheMiss):
			deps.Metrics.RecordCacheLookup(false)
		default:
			deps.Metrics.RecordCacheLookup(false)
			logger.Warn("Cache lookup failed", zap.Error(err))
		}
	}

	// Step 2: Solve
	started := time.Now()
	out, err := engine.Solve(ctx, input)
	if err != nil {
		deps.Metrics.ObserveSolveError(ErrorKind(err))
		return nil, fmt.Errorf("failed to solve roster: %w", err)
	}
	deps.Metrics.ObserveSolve(engine.Name(), out, time.Since(started))

	// Step 3: Cache the fresh output
	if key != "" {
		if err := deps.Cache.Set(ctx, key, out); err != nil {
			logger.Warn("Failed to cache solve output", zap.Error(err))
		}
	}

	return evaluate(input, out, engine.Name(), cfg, logger)
}

// evaluate validates the output and decides whether its soft violations are acceptable
func evaluate(input solver.Input, out *solver.Output, solverName string, cfg *config.Config, logger *zap.Logger) (*SolveResult, error) {
	report := validation.Validate(validationInput(input, out.Assignments), cfg.ValidationConstraints())

	acceptance, err := relaxation.NewManager(cfg.RelaxationPolicy(), logger).AcceptReport(report, out.CoveragePercent)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate solution: %w", err)
	}

	logger.Info("Solution evaluated",
		zap.String("run_id", out.RunID),
		zap.String("status", string(out.Status)),
		zap.Float64("coverage_percent", out.CoveragePercent),
		zap.Int("critical", report.CriticalCount),
		zap.Int("warnings", report.WarningCount),
		zap.Bool("accepted", acceptance.Accepted))

	return &SolveResult{
		Output:     out,
		Solver:     solverName,
		Report:     report,
		Acceptance: acceptance,
	}, nil
}

// validationInput builds validator input; blocked pre-planned assignments count as blackouts
func validationInput(input solver.Input, assignments []model.Assignment) validation.Input {
	blackouts := append([]model.BlackoutSlot(nil), input.Blackouts...)
	for _, a := range input.Preplanned {
		if a.Status == model.StatusBlocked {
			blackouts = append(blackouts, model.BlackoutSlot{WorkerID: a.WorkerID, Date: a.Date, Timeblock: a.Timeblock})
		}
	}
	return validation.Input{
		PeriodStart:  input.PeriodStart,
		PeriodEnd:    input.PeriodEnd,
		Assignments:  assignments,
		Workers:      input.Workers,
		Services:     input.Services,
		Requirements: input.Requirements,
		PairingRules: input.PairingRules,
		Blackouts:    blackouts,
	}
}

// ErrorKind classifies a solve error for metrics and transport mapping
func ErrorKind(err error) string {
	if kind, ok := model.KindOf(err); ok {
		return string(kind)
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal"
	}
}
