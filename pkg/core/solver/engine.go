package solver

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/pkg/core/availability"
	"github.com/jakechorley/duty-roster/pkg/core/bottleneck"
	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/pairing"
	"github.com/jakechorley/duty-roster/pkg/core/queue"
)

// Engine is the greedy assignment engine. It holds configuration only; every Solve builds
// fresh per-run state so one Engine may serve concurrent solves.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// New creates an Engine
func New(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts.withDefaults(), logger: logger}
}

func (e *Engine) Name() string {
	return "greedy/" + e.opts.Scorer.Name()
}

// Options returns the effective options, defaults applied
func (e *Engine) Options() Options {
	return e.opts
}

// run is the per-solve context passed through the pass
type run struct {
	input   Input
	queue   *queue.Queue
	tracker *availability.Tracker
	pairing *pairing.Engine
	scorer  Scorer

	// credit holds the teams of pre-planned workers per service slot not yet claimed by a requirement
	credit map[model.ServiceSlotKey][]string

	assignments []model.Assignment
	bottlenecks []model.Bottleneck
	stats       Statistics
}

// Solve runs the single greedy pass. Unfillable requirements become bottlenecks; only
// malformed input, invariant violations and cancellation return an error.
func (e *Engine) Solve(ctx context.Context, input Input) (*Output, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With(zap.String("run_id", runID), zap.String("roster_id", input.RosterID))

	r, err := e.newRun(input)
	if err != nil {
		return nil, err
	}

	logger.Info("Starting greedy solve",
		zap.Int("workers", len(input.Workers)),
		zap.Int("requirements", len(input.Requirements)),
		zap.Int("preplanned", len(input.Preplanned)),
		zap.String("scorer", e.opts.Scorer.Name()))

	// Step 1: Load pre-planned data as committed
	if err := r.preload(); err != nil {
		return nil, err
	}

	// Step 2: Single pass over the sorted queue
	warned := make(map[string]bool)
	for _, item := range r.queue.Items(input.Requirements) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("solve cancelled: %w", err)
		}
		if item.MissingMetadata && !warned[item.Requirement.ServiceCode] {
			warned[item.Requirement.ServiceCode] = true
			logger.Warn("Service missing from catalogue, defaulting to team tier and ANY scope",
				zap.String("service_code", item.Requirement.ServiceCode))
		}
		if err := r.fill(item); err != nil {
			return nil, err
		}
	}

	// Step 3: Diagnose bottlenecks over the final state
	analyzer := bottleneck.NewAnalyzer(r.tracker.Snapshot()).WithPairing(r.pairing)
	r.bottlenecks = analyzer.EnrichAll(r.bottlenecks)

	out := r.output(runID, e.opts.PartialCoverageThreshold)
	out.SolveTimeMs = time.Since(started).Milliseconds()

	logger.Info("Greedy solve finished",
		zap.String("status", string(out.Status)),
		zap.Float64("coverage_percent", out.CoveragePercent),
		zap.Int("assignments", len(out.Assignments)),
		zap.Int("bottlenecks", len(out.Bottlenecks)),
		zap.Int64("solve_time_ms", out.SolveTimeMs))

	return out, nil
}

func (e *Engine) newRun(input Input) (*run, error) {
	q := queue.New(input.Services, e.opts.Timeblocks, e.opts.SystemOrder)
	if err := validateInput(input, q, e.opts.AllowUnknownServices); err != nil {
		return nil, err
	}

	tracker, err := availability.NewTracker(input.Workers, input.Blackouts)
	if err != nil {
		return nil, err
	}

	engine, err := pairing.NewEngine(input.PairingRules, tracker, e.opts.SoftPairingPenalty)
	if err != nil {
		return nil, err
	}

	return &run{
		input:   input,
		queue:   q,
		tracker: tracker,
		pairing: engine,
		scorer:  e.opts.Scorer,
		credit:  make(map[model.ServiceSlotKey][]string),
		stats: Statistics{
			RequirementsByTier:  make(map[string]int),
			PositionsByTier:     make(map[string]int),
			BottlenecksByReason: make(map[model.BottleneckReason]int),
		},
	}, nil
}

func (r *run) preload() error {
	const op = "solver.preload"

	preplanned := slices.Clone(r.input.Preplanned)
	slices.SortStableFunc(preplanned, func(a, b model.Assignment) int {
		if c := r.queue.CompareSlots(
			model.SlotKey{Date: a.Date, Timeblock: a.Timeblock},
			model.SlotKey{Date: b.Date, Timeblock: b.Timeblock}); c != 0 {
			return c
		}
		if c := cmp.Compare(a.WorkerID, b.WorkerID); c != 0 {
			return c
		}
		return cmp.Compare(a.ServiceCode, b.ServiceCode)
	})

	// Occupy every pre-planned slot before firing pairing, so a hard block is never
	// materialized on a slot the worker holds with another service
	var active []model.Assignment
	for _, a := range preplanned {
		a.Source = model.SourcePrePlanned

		switch a.Status {
		case model.StatusBlocked:
			if err := r.tracker.AddBlackout(model.BlackoutSlot{WorkerID: a.WorkerID, Date: a.Date, Timeblock: a.Timeblock}); err != nil {
				return err
			}
			r.assignments = append(r.assignments, a)
			continue
		case model.StatusOpen:
			r.assignments = append(r.assignments, a)
			continue
		}

		if err := r.tracker.Preload(a); err != nil {
			return err
		}
		active = append(active, a)
	}

	for _, a := range active {
		if ok, reason := r.pairing.IsEligibleForAssignment(a.WorkerID, a.Date, a.Timeblock, a.ServiceCode); !ok {
			return model.NewDataError(op, "pre-planned assignment for %q conflicts with pairing: %s", a.WorkerID, reason)
		}
		if err := r.pairing.OnAssignmentMade(a); err != nil {
			return err
		}

		w, _ := r.tracker.Worker(a.WorkerID)
		key := model.ServiceSlotKey{Date: a.Date, Timeblock: a.Timeblock, ServiceCode: a.ServiceCode}
		r.credit[key] = append(r.credit[key], model.NormalizeTeam(w.Team))
		r.assignments = append(r.assignments, a)
		r.stats.PrePlannedAssignments++
	}
	return nil
}

// claimCredit takes up to want pre-planned positions whose worker team matches the
// requirement scope. Team members are claimed before floaters.
func (r *run) claimCredit(key model.ServiceSlotKey, team string, want int) int {
	pool := r.credit[key]
	claimed := 0
	for _, floaters := range []bool{false, true} {
		kept := pool[:0]
		for _, workerTeam := range pool {
			isFloater := workerTeam == model.TeamAny
			if claimed < want && isFloater == floaters && model.TeamMatches(workerTeam, team) {
				claimed++
				continue
			}
			kept = append(kept, workerTeam)
		}
		pool = kept
	}
	r.credit[key] = pool
	return claimed
}

// fill staffs one requirement as far as candidates allow
func (r *run) fill(item queue.Item) error {
	req := item.Requirement
	tier := item.Tier.String()
	r.stats.TotalRequirements++
	r.stats.TotalPositions += req.Count
	r.stats.RequirementsByTier[tier]++
	r.stats.PositionsByTier[tier] += req.Count

	// Pre-planned headcount is claimed once, by the first team-matching requirements in queue order
	key := model.ServiceSlotKey{Date: req.Date, Timeblock: req.Timeblock, ServiceCode: req.ServiceCode}
	assigned := r.claimCredit(key, item.Team, req.Count)
	r.stats.PrePlannedCredited += assigned

	for assigned < req.Count {
		pick, ok := r.pick(item)
		if !ok {
			break
		}
		a, err := r.tracker.Reserve(pick, req.Date, req.Timeblock, req.ServiceCode)
		if err != nil {
			return err
		}
		if err := r.pairing.OnAssignmentMade(a); err != nil {
			return err
		}
		r.assignments = append(r.assignments, a)
		r.stats.GreedyAssignments++
		assigned++
	}
	r.stats.FilledPositions += assigned

	if assigned < req.Count {
		r.bottlenecks = append(r.bottlenecks, model.Bottleneck{
			Date:        req.Date,
			Timeblock:   req.Timeblock,
			ServiceCode: req.ServiceCode,
			Team:        item.Team,
			Needed:      req.Count,
			Assigned:    assigned,
			Shortage:    req.Count - assigned,
		})
	}
	return nil
}

// pick returns the best candidate. Workers are visited in ascending id order and only a
// strictly higher score replaces the current best, so ties go to the lowest id.
func (r *run) pick(item queue.Item) (string, bool) {
	var (
		best      string
		bestScore float64
		found     bool
	)
	for _, id := range r.tracker.WorkerIDs() {
		c, ok := r.candidate(id, item)
		if !ok {
			continue
		}
		score := r.scorer.Score(c)
		if !found || score > bestScore {
			best, bestScore, found = id, score, true
		}
	}
	return best, found
}

func (r *run) candidate(workerID string, item queue.Item) (Candidate, bool) {
	req := item.Requirement
	if !r.tracker.IsEligible(workerID, req.ServiceCode) {
		return Candidate{}, false
	}
	if !r.tracker.IsAvailable(workerID, req.Date, req.Timeblock) {
		return Candidate{}, false
	}
	if ok, _ := r.pairing.IsEligibleForAssignment(workerID, req.Date, req.Timeblock, req.ServiceCode); !ok {
		return Candidate{}, false
	}
	w, _ := r.tracker.Worker(workerID)
	if !model.TeamMatches(w.Team, item.Team) {
		return Candidate{}, false
	}
	return Candidate{
		WorkerID:        workerID,
		Gap:             w.TargetShifts - r.tracker.AssignedShifts(workerID),
		PairingPenalty:  r.pairing.Penalty(workerID, req.Date, req.Timeblock, req.ServiceCode),
		CapabilityCount: len(w.Capabilities),
		QuotaRatio:      r.tracker.QuotaRatio(workerID, req.ServiceCode),
	}, true
}

func (r *run) output(runID string, threshold float64) *Output {
	out := &Output{
		RunID:        runID,
		RosterID:     r.input.RosterID,
		Assignments:  r.assignments,
		Bottlenecks:  r.bottlenecks,
		BlockedSlots: r.tracker.BlockedSlots(),
		Statistics:   r.stats,
	}
	if out.Assignments == nil {
		out.Assignments = []model.Assignment{}
	}
	if out.Bottlenecks == nil {
		out.Bottlenecks = []model.Bottleneck{}
	}

	slices.SortStableFunc(out.Assignments, func(a, b model.Assignment) int {
		if c := r.queue.CompareSlots(
			model.SlotKey{Date: a.Date, Timeblock: a.Timeblock},
			model.SlotKey{Date: b.Date, Timeblock: b.Timeblock}); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ServiceCode, b.ServiceCode); c != 0 {
			return c
		}
		return cmp.Compare(a.WorkerID, b.WorkerID)
	})

	used := make(map[string]bool)
	for _, a := range out.Assignments {
		if a.IsActive() {
			used[a.WorkerID] = true
		}
	}
	out.Statistics.WorkersUsed = len(used)
	for _, b := range out.Bottlenecks {
		out.Statistics.BottlenecksByReason[b.Reason]++
	}

	out.CoveragePercent = Coverage(r.stats.FilledPositions, r.stats.TotalPositions)
	out.Status = StatusFor(len(out.Bottlenecks), out.CoveragePercent, threshold)
	return out
}

// Coverage returns 100 * assigned / required, or 0 when nothing is required
func Coverage(assigned, required int) float64 {
	if required == 0 {
		return 0
	}
	return 100 * float64(assigned) / float64(required)
}

// StatusFor derives the run status from its bottlenecks and coverage
func StatusFor(bottlenecks int, coverage, threshold float64) Status {
	switch {
	case bottlenecks == 0:
		return StatusSuccess
	case coverage >= threshold:
		return StatusPartial
	default:
		return StatusFailed
	}
}
