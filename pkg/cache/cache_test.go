package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/duty-roster/pkg/core/model"
	"github.com/jakechorley/duty-roster/pkg/core/solver"
)

func sampleInput() solver.Input {
	return solver.Input{
		RosterID: "r1",
		Workers: []model.Worker{{
			ID:             "w1",
			Capabilities:   []model.Capability{{ServiceCode: "X"}},
			Unavailability: map[model.Weekday][]model.Timeblock{model.Monday: {model.TimeblockMorning}, model.Friday: {model.TimeblockEvening}},
		}},
		Services:     []model.ServiceType{{Code: "X", Team: model.TeamAny}},
		Requirements: []model.Requirement{{Date: "2024-03-04", Timeblock: model.TimeblockMorning, ServiceCode: "X", Count: 1}},
	}
}

func TestKey_IsStableForEqualInputs(t *testing.T) {
	first, err := Key("greedy/gap", solver.DefaultOptions(), sampleInput())
	require.NoError(t, err)
	second, err := Key("greedy/gap", solver.DefaultOptions(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, KeyPrefix))
	assert.Len(t, strings.TrimPrefix(first, KeyPrefix), 64)
}

func TestKey_ChangesWithInputAndSolver(t *testing.T) {
	base, err := Key("greedy/gap", solver.DefaultOptions(), sampleInput())
	require.NoError(t, err)

	changed := sampleInput()
	changed.Requirements[0].Count = 2
	other, err := Key("greedy/gap", solver.DefaultOptions(), changed)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)

	weighted, err := Key("greedy/weighted", solver.DefaultOptions(), sampleInput())
	require.NoError(t, err)
	assert.NotEqual(t, base, weighted)
}

func TestKey_ChangesWithEngineOptions(t *testing.T) {
	base, err := Key("greedy/gap", solver.DefaultOptions(), sampleInput())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(o *solver.Options)
	}{
		{"system order", func(o *solver.Options) {
			o.SystemOrder = map[model.Timeblock][]string{model.TimeblockMorning: {"X"}}
		}},
		{"timeblock order", func(o *solver.Options) {
			o.Timeblocks = []model.Timeblock{model.TimeblockEvening, model.TimeblockMorning}
		}},
		{"soft pairing penalty", func(o *solver.Options) { o.SoftPairingPenalty = 2 }},
		{"capability bonus", func(o *solver.Options) { o.Scorer = solver.GapScorer{CapabilityMatchBonus: 0.5} }},
		{"allow unknown services", func(o *solver.Options) { o.AllowUnknownServices = true }},
		{"partial threshold", func(o *solver.Options) { o.PartialCoverageThreshold = 60 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := solver.DefaultOptions()
			tt.mutate(&opts)

			key, err := Key("greedy/gap", opts, sampleInput())

			require.NoError(t, err)
			assert.NotEqual(t, base, key)
		})
	}
}

func TestKey_WeightedScorerWeightsMatter(t *testing.T) {
	opts := solver.DefaultOptions()
	opts.Scorer = solver.WeightedScorer{Gap: 1, Skill: 0.5, Availability: 0.5}
	first, err := Key("greedy/weighted", opts, sampleInput())
	require.NoError(t, err)

	opts.Scorer = solver.WeightedScorer{Gap: 1, Skill: 0, Availability: 1}
	second, err := Key("greedy/weighted", opts, sampleInput())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestResultCache_DisabledWithoutClient(t *testing.T) {
	c := New(nil, 0, nil)
	ctx := context.Background()

	assert.False(t, c.Enabled())
	assert.Equal(t, DefaultTTL, c.ttl)

	require.NoError(t, c.Set(ctx, "k", &solver.Output{RunID: "run-1"}))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Close())
}

func TestResultCache_NilReceiver(t *testing.T) {
	var c *ResultCache

	assert.False(t, c.Enabled())
	_, err := c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
