package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/duty-roster/internal/config"
	"github.com/jakechorley/duty-roster/pkg/cache"
	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
	"github.com/jakechorley/duty-roster/pkg/db"
	"github.com/jakechorley/duty-roster/pkg/metrics"
)

// mockSolveRosterStore implements SolveRosterStore for testing
type mockSolveRosterStore struct {
	input   solver.Input
	saved   []db.SolveResult
	loadErr error
	saveErr error
}

func (m *mockSolveRosterStore) LoadRosterInput(ctx context.Context, rosterID string) (solver.Input, error) {
	if m.loadErr != nil {
		return solver.Input{}, m.loadErr
	}
	in := m.input
	in.RosterID = rosterID
	return in, nil
}

func (m *mockSolveRosterStore) SaveSolveResult(ctx context.Context, result db.SolveResult) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, result)
	return nil
}

func day(n int) string {
	d, err := model.AddDays("2024-03-04", n)
	if err != nil {
		panic(err)
	}
	return d
}

// simpleInput asks for one X worker per morning for the given number of days
func simpleInput(days int, workers ...string) solver.Input {
	in := solver.Input{Services: []model.ServiceType{{Code: "X", Team: model.TeamAny}}}
	for _, id := range workers {
		in.Workers = append(in.Workers, model.Worker{ID: id, Team: model.TeamAny, Capabilities: []model.Capability{{ServiceCode: "X"}}})
	}
	for i := range days {
		in.Requirements = append(in.Requirements, model.Requirement{Date: day(i), Timeblock: model.TimeblockMorning, ServiceCode: "X", Count: 1})
	}
	return in
}

func TestSolveRoster_PersistsAcceptedSolution(t *testing.T) {
	store := &mockSolveRosterStore{input: simpleInput(2, "w1", "w2")}
	m := metrics.New()

	result, err := SolveRoster(context.Background(), store, config.Default(), Collaborators{Logger: zap.NewNop(), Metrics: m}, "roster-1", false)

	require.NoError(t, err)
	assert.Equal(t, solver.StatusSuccess, result.Output.Status)
	assert.True(t, result.Acceptance.Accepted)
	assert.True(t, result.Persisted)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "roster-1", store.saved[0].Run.RosterID)
	assert.Equal(t, "greedy/gap", store.saved[0].Run.Solver)
	assert.Len(t, store.saved[0].Assignments, 2)
	count, err := testutil.GatherAndCount(m.Registry(), "roster_solves_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSolveRoster_DryRunDoesNotPersist(t *testing.T) {
	store := &mockSolveRosterStore{input: simpleInput(1, "w1")}

	result, err := SolveRoster(context.Background(), store, config.Default(), Collaborators{}, "roster-1", true)

	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.Empty(t, store.saved)
	assert.Len(t, result.Output.Assignments, 1)
}

func TestSolveRoster_FailedRunIsNotPersisted(t *testing.T) {
	in := simpleInput(2)
	store := &mockSolveRosterStore{input: in}

	result, err := SolveRoster(context.Background(), store, config.Default(), Collaborators{}, "roster-1", false)

	require.NoError(t, err)
	assert.Equal(t, solver.StatusFailed, result.Output.Status)
	assert.Len(t, result.Output.Bottlenecks, 2)
	assert.False(t, result.Persisted)
	assert.Empty(t, store.saved)
}

func TestSolveRoster_RejectedByRelaxation(t *testing.T) {
	// One worker covering seven straight days breaks the consecutive day limit at full coverage
	store := &mockSolveRosterStore{input: simpleInput(7, "w1")}
	cfg := config.Default()

	result, err := SolveRoster(context.Background(), store, cfg, Collaborators{}, "roster-1", false)

	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Output.CoveragePercent)
	assert.False(t, result.Acceptance.Accepted)
	assert.Contains(t, result.Acceptance.Reason, "consecutive_days")
	assert.False(t, result.Persisted)

	cfg.Relaxation.Force = true
	forced, err := SolveRoster(context.Background(), store, cfg, Collaborators{}, "roster-1", false)

	require.NoError(t, err)
	assert.True(t, forced.Persisted)
	require.Len(t, store.saved, 1)
	assert.False(t, store.saved[0].Run.Accepted)
}

func TestSolveRoster_LoadError(t *testing.T) {
	store := &mockSolveRosterStore{loadErr: db.ErrRosterNotFound}

	_, err := SolveRoster(context.Background(), store, config.Default(), Collaborators{}, "missing", false)

	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrRosterNotFound)
	assert.Contains(t, err.Error(), "failed to load roster")
}

func TestSolveRoster_SaveError(t *testing.T) {
	store := &mockSolveRosterStore{input: simpleInput(1, "w1"), saveErr: errors.New("connection reset")}

	_, err := SolveRoster(context.Background(), store, config.Default(), Collaborators{}, "roster-1", false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save solve result")
}

func TestSolveInput_DataErrorIsCounted(t *testing.T) {
	in := simpleInput(1, "w1")
	in.Requirements[0].Count = -1
	m := metrics.New()

	_, err := SolveInput(context.Background(), in, config.Default(), Collaborators{Metrics: m})

	require.Error(t, err)
	assert.True(t, model.IsDataError(err))
	assert.Equal(t, "data_error", ErrorKind(err))
	count, err := testutil.GatherAndCount(m.Registry(), "roster_solve_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSolveInput_DisabledCacheStillSolves(t *testing.T) {
	result, err := SolveInput(context.Background(), simpleInput(1, "w1"), config.Default(), Collaborators{Cache: cache.New(nil, 0, nil)})

	require.NoError(t, err)
	assert.False(t, result.Output.Cached)
	assert.Len(t, result.Output.Assignments, 1)
}

func TestSolveInput_InvalidScoringConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Scoring.Strategy = "random"

	_, err := SolveInput(context.Background(), simpleInput(1, "w1"), cfg, Collaborators{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to configure solver")
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "invariant_violation", ErrorKind(model.NewInvariantViolation("op", "broken")))
	assert.Equal(t, "deadline_exceeded", ErrorKind(context.DeadlineExceeded))
	assert.Equal(t, "cancelled", ErrorKind(context.Canceled))
	assert.Equal(t, "internal", ErrorKind(errors.New("boom")))
}
